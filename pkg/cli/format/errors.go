package format

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/swiftwave-org/swctl/pkg/api/graphql"
	"github.com/swiftwave-org/swctl/pkg/api/rest"
	"github.com/swiftwave-org/swctl/pkg/draft"
	"github.com/swiftwave-org/swctl/pkg/router"
	"github.com/swiftwave-org/swctl/pkg/types"
)

// Error kinds shown in the error heading.
const (
	KindValidation = "validation"
	KindServer     = "server"
	KindNetwork    = "network"
	KindAuth       = "auth"
	KindNotFound   = "not found"
	KindGeneric    = "error"
)

// ErrorReport is a classified error with an optional hint.
type ErrorReport struct {
	Kind    string
	Message string
	Hint    string
}

// Classify maps an error to what the user should see.
func Classify(err error) ErrorReport {
	var (
		verr *types.ValidationError
		uerr *draft.UpdateError
		rerr *rest.ResponseError
		nerr *rest.NetworkError
	)

	switch {
	case errors.As(err, &verr):
		return ErrorReport{Kind: KindValidation, Message: verr.Error(), Hint: "Nothing was sent to the server."}
	case errors.As(err, &uerr):
		return ErrorReport{Kind: KindServer, Message: uerr.Error(), Hint: "Your edits were kept; fix them and apply again."}
	case errors.Is(err, draft.ErrDeploymentModeImmutable):
		return ErrorReport{Kind: KindValidation, Message: err.Error()}
	case errors.As(err, &rerr) && rerr.StatusCode == http.StatusUnauthorized:
		return ErrorReport{Kind: KindAuth, Message: rerr.Error(), Hint: "Run 'swctl login' to sign in again."}
	case errors.As(err, &nerr), graphql.IsTransportError(err) && !isUnauthorized(err):
		return ErrorReport{Kind: KindNetwork, Message: err.Error(), Hint: "Check that the server is reachable and the context points at it."}
	case isUnauthorized(err):
		return ErrorReport{Kind: KindAuth, Message: err.Error(), Hint: "Run 'swctl login' to sign in again."}
	case errors.Is(err, router.ErrNotFound):
		return ErrorReport{Kind: KindNotFound, Message: err.Error()}
	}

	if gerrs, ok := graphql.AsErrors(err); ok {
		return ErrorReport{Kind: KindServer, Message: gerrs.Message()}
	}
	return ErrorReport{Kind: KindGeneric, Message: err.Error()}
}

func isUnauthorized(err error) bool {
	var terr *graphql.TransportError
	return errors.As(err, &terr) && terr.StatusCode == http.StatusUnauthorized
}

// PrintError writes a colored report of err to w.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	r := Classify(err)

	heading := "Error"
	if r.Kind != KindGeneric {
		heading = fmt.Sprintf("Error (%s)", r.Kind)
	}
	lines := strings.Split(r.Message, "\n")
	fmt.Fprintf(w, "%s %s\n", ErrorColor.Sprint(heading+":"), lines[0])
	for _, l := range lines[1:] {
		fmt.Fprintf(w, "  %s\n", l)
	}
	if r.Hint != "" {
		fmt.Fprintf(w, "  %s %s\n", HintColor.Sprint("hint:"), r.Hint)
	}
}

// PrintSuccess writes a success message to w.
func PrintSuccess(w io.Writer, message string) {
	for i, l := range strings.Split(message, "\n") {
		if i == 0 {
			fmt.Fprintf(w, "%s %s\n", StatusSymbol(true), SuccessColor.Sprint(l))
			continue
		}
		fmt.Fprintf(w, "  %s\n", Dim("%s", l))
	}
}

// PrintWarning writes a warning to w.
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", WarningColor.Sprint("Warning:"), message)
}
