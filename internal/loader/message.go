package loader

import (
	"errors"
	"fmt"

	"github.com/ppiankov/pgsecui/internal/apiclient"
	"github.com/ppiankov/pgsecui/internal/models"
)

// Message converts a loader error into the single line shown to the user.
// op selects the default wording when the error carries none of its own.
func Message(op string, err error) string {
	if err == nil {
		return ""
	}

	var tErr *apiclient.TransferError
	if errors.As(err, &tErr) {
		return tErr.Message
	}

	var decErr *models.DecodeError
	if errors.As(err, &decErr) {
		return apiclient.DefaultMessage(op) + ": not a valid report"
	}

	var dsnErr *DSNError
	if errors.As(err, &dsnErr) {
		return dsnErr.Error()
	}

	return fmt.Sprintf("%s: %v", apiclient.DefaultMessage(op), err)
}
