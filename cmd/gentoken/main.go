package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mkovacs/trading-bridge/internal/mailbox"
)

// gentoken runs the one-time interactive OAuth grant and writes the
// authorized-user token file the ingest binary reads at startup.
func main() {
	var credsPath string
	var outPath string
	var port string
	var readonly bool
	flag.StringVar(&credsPath, "credentials", "credentials.json", "OAuth client credentials file")
	flag.StringVar(&outPath, "out", "token.json", "where to write the token")
	flag.StringVar(&port, "port", "8089", "local callback port")
	flag.BoolVar(&readonly, "readonly", false, "request gmail.readonly instead of gmail.modify")
	flag.Parse()

	scope := mailbox.ScopeModify
	if readonly {
		scope = mailbox.ScopeReadonly
	}

	raw, err := os.ReadFile(credsPath)
	if err != nil {
		log.Fatalf("read credentials: %v", err)
	}
	cfg, err := google.ConfigFromJSON(raw, scope)
	if err != nil {
		log.Fatalf("parse credentials: %v", err)
	}
	cfg.RedirectURL = "http://localhost:" + port + "/auth/callback"

	codeChan := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/callback", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Authorization received, you can close this tab.")
		codeChan <- r.URL.Query().Get("code")
	})
	srv := &http.Server{Addr: "localhost:" + port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("callback server: %v", err)
		}
	}()

	// ApprovalForce so Google re-issues a refresh token on repeat grants.
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("Go to the following link in your browser:\n%v\n", authURL)

	code := <-codeChan
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if code == "" {
		log.Fatalf("authorization callback carried no code")
	}

	tok, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		log.Fatalf("exchange auth code: %v", err)
	}
	if tok.RefreshToken == "" {
		log.Fatalf("no refresh token granted, revoke access at myaccount.google.com and retry")
	}

	stored := mailbox.StoredToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{scope},
	}
	if err := stored.Save(outPath); err != nil {
		log.Fatalf("write token: %v", err)
	}
	fmt.Printf("Token saved to %s\n", outPath)
}
