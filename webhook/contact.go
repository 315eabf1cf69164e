// Package webhook forwards the contact form and certificate lookups to their
// automation endpoints.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrMissingField = errors.New("missing field")

// Contact is one submission of the contact form
type Contact struct {
	Name    string `json:"name" form:"Name"`
	Email   string `json:"email" form:"Email"`
	Message string `json:"message" form:"Message"`
}

// Validate trims all fields and checks that none is empty
func (c *Contact) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Message = strings.TrimSpace(c.Message)

	switch {
	case c.Name == "":
		return fmt.Errorf("%w: Name", ErrMissingField)
	case c.Email == "":
		return fmt.Errorf("%w: Email", ErrMissingField)
	case c.Message == "":
		return fmt.Errorf("%w: Message", ErrMissingField)
	}
	return nil
}

// Receipt is what the sender sees after submitting. The endpoint response is
// never read, so Sent only means the request was dispatched.
type Receipt struct {
	Sent bool      `json:"sent"`
	At   time.Time `json:"at"`
}

type ContactSender struct {
	endpoint string
	client   *http.Client
}

func NewContactSender(endpoint string, timeout time.Duration) *ContactSender {
	return &ContactSender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// URL builds the GET request URL carrying the submission as query parameters
func (s *ContactSender) URL(c Contact) string {
	params := url.Values{}
	params.Set("Name", c.Name)
	params.Set("Email", c.Email)
	params.Set("Message", c.Message)
	return s.endpoint + "?" + params.Encode()
}

// Submit dispatches the contact form. Only validation errors are returned,
// transport failures are logged and the receipt still reports success.
func (s *ContactSender) Submit(ctx context.Context, c Contact) (Receipt, error) {
	if err := c.Validate(); err != nil {
		return Receipt{}, err
	}

	target := s.URL(c)
	log.WithFields(log.Fields{
		"endpoint": s.endpoint,
	}).Info("Sending contact request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Error building contact request")
		return Receipt{Sent: true, At: time.Now()}, nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("Error sending contact request")
	} else {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		log.Info("Contact request dispatched")
	}

	return Receipt{Sent: true, At: time.Now()}, nil
}
