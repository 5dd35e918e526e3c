package types

// PersistentVolumeType is the storage backend of a volume.
type PersistentVolumeType string

const (
	PersistentVolumeTypeLocal PersistentVolumeType = "local"
	PersistentVolumeTypeNFS   PersistentVolumeType = "nfs"
	PersistentVolumeTypeCIFS  PersistentVolumeType = "cifs"
)

// PersistentVolume is a named volume that applications can bind.
type PersistentVolume struct {
	ID       uint                 `json:"id"`
	Name     string               `json:"name"`
	Type     PersistentVolumeType `json:"type"`
	Bindings []struct {
		ApplicationID string `json:"applicationID"`
		MountingPath  string `json:"mountingPath"`
	} `json:"persistentVolumeBindings"`
}

// Validate checks a PersistentVolume.
func (v *PersistentVolume) Validate() error {
	if v.ID == 0 || v.Name == "" {
		return NewFieldValidationError("persistentVolume", "missing id or name")
	}
	return nil
}
