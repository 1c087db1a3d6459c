package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"citizenship/pkg/platform/sentinel"
)

// translate maps REST failures onto sentinel errors: 403 is forbidden, 404
// is not found and everything else is treated as unavailable.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrNotFound, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
