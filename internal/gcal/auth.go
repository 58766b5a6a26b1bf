package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/360Method/360-method-app-sub002/internal/config"
)

// Scopes are the Calendar permissions sync needs.
var Scopes = []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope}

// authTimeout bounds how long the browser consent step may take.
const authTimeout = 5 * time.Minute

// HTTPClient returns an authorized client. A cached token is used when
// present; otherwise the installed-app flow runs on a loopback listener
// and the authorization URL is printed to prompt.
func HTTPClient(ctx context.Context, cfg config.GoogleCalendar, prompt io.Writer) (*http.Client, error) {
	b, err := os.ReadFile(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("read client credentials %s: %w", cfg.Credentials, err)
	}
	oc, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client credentials: %w", err)
	}

	tok, err := tokenFromFile(cfg.Token)
	if err != nil {
		tok, err = tokenFromWeb(ctx, oc, prompt)
		if err != nil {
			return nil, fmt.Errorf("authorize: %w", err)
		}
		if err := saveToken(cfg.Token, tok); err != nil {
			return nil, err
		}
	}
	return oc.Client(ctx, tok), nil
}

// NewService builds an authorized Calendar service.
func NewService(ctx context.Context, cfg config.GoogleCalendar, prompt io.Writer) (*calendar.Service, error) {
	client, err := HTTPClient(ctx, cfg, prompt)
	if err != nil {
		return nil, err
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, nil
}

func tokenFromWeb(ctx context.Context, oc *oauth2.Config, prompt io.Writer) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start loopback listener: %w", err)
	}
	defer listener.Close()
	oc.RedirectURL = "http://" + listener.Addr().String() + "/"

	state := fmt.Sprintf("upkeep-%d", time.Now().UnixNano())
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state || q.Get("code") == "" {
				http.Error(w, "authorization code not found", http.StatusBadRequest)
				errCh <- errors.New("authorization redirect without a valid code")
				return
			}
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
			codeCh <- q.Get("code")
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go srv.Serve(listener)
	defer srv.Close()

	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(prompt, "Open this URL to authorize calendar sync:\n%s\n", authURL)

	select {
	case code := <-codeCh:
		tok, err := oc.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange code: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, errors.New("authorization timed out")
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cache token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
