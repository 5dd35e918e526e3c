package types

// GitCredential authenticates repository clones.
type GitCredential struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Username string `json:"username"`
}

// Validate checks a GitCredential.
func (c *GitCredential) Validate() error {
	if c.ID == 0 || c.Name == "" {
		return NewFieldValidationError("gitCredential", "missing id or name")
	}
	return nil
}

// ImageRegistryCredential authenticates image pulls.
type ImageRegistryCredential struct {
	ID       uint   `json:"id"`
	URL      string `json:"url"`
	Username string `json:"username"`
}

// Validate checks an ImageRegistryCredential.
func (c *ImageRegistryCredential) Validate() error {
	if c.ID == 0 || c.URL == "" {
		return NewFieldValidationError("imageRegistryCredential", "missing id or url")
	}
	return nil
}
