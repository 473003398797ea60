package elms

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// Login runs the login form handshake. Rejections wrap ErrAuthentication
// (ErrLoginTokenNotFound, ErrInvalidCredentials or ErrSesskeyMissing) so that
// a changed site can be told apart from a wrong password.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	loginError := func(err error) error {
		return fmt.Errorf("elms: login: %w", err)
	}

	httpClient, err := c.newHttp()
	if err != nil {
		return nil, loginError(err)
	}

	res, err := httpClient.R().
		SetContext(ctx).
		Get("/login/index.php")
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("login page request: %w", err),
		)
		return nil, loginError(err)
	}
	doc, err := ParseDocument(bytes.NewReader(res.Body()))
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("parse login page: %w", err),
		)
		return nil, loginError(err)
	}

	logintoken, ok := ExtractLoginToken(doc)
	if !ok {
		c.tel.ReportBroken(report_client_login, ErrLoginTokenNotFound, res.StatusCode())
		return nil, loginError(ErrLoginTokenNotFound)
	}

	res, err = httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"logintoken": logintoken,
			"username":   username,
			"password":   password,
		}).
		Post("/login/index.php")
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("login request: %w", err),
		)
		return nil, loginError(err)
	}

	if !strings.Contains(res.String(), c.opts.LoggedInMarker) {
		c.tel.ReportDebug("login rejected", username)
		return nil, loginError(ErrInvalidCredentials)
	}

	doc, err = ParseDocument(bytes.NewReader(res.Body()))
	if err != nil {
		c.tel.ReportBroken(
			report_client_login,
			fmt.Errorf("parse dashboard: %w", err),
		)
		return nil, loginError(err)
	}
	sesskey, ok := ExtractSesskey(doc)
	if !ok {
		c.tel.ReportBroken(report_client_login, ErrSesskeyMissing)
		return nil, loginError(ErrSesskeyMissing)
	}

	return &Session{
		BaseUrl: c.baseUrl,
		Http:    httpClient,
		Sesskey: sesskey,
		opts:    c.opts,
		tel:     c.tel,
	}, nil
}
