// Command gdrive-auth runs the OAuth consent flow once and prints the
// GDRIVE_REFRESH_TOKEN the gdrive storage provider needs.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func main() {
	timeout := flag.Duration("timeout", 3*time.Minute, "how long to wait for the browser callback")
	verify := flag.Bool("verify", true, "list one Drive file with the new token")
	flag.Parse()

	_ = godotenv.Load()
	ctx := context.Background()

	clientID := mustEnv("GDRIVE_CLIENT_ID")
	clientSecret := mustEnv("GDRIVE_CLIENT_SECRET")

	// 1) Levanta un callback local en un puerto libre
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatal(err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		// solo archivos creados por lienzo
		Scopes:      []string{drive.DriveFileScope},
		RedirectURL: redirectURL,
	}

	state := randomState()
	verifier := oauth2.GenerateVerifier()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "invalid state", http.StatusBadRequest)
			errCh <- fmt.Errorf("invalid state")
		case q.Get("error") != "":
			http.Error(w, "auth error: "+q.Get("error"), http.StatusBadRequest)
			errCh <- fmt.Errorf("auth error: %s", q.Get("error"))
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("missing code")
		default:
			fmt.Fprintln(w, "OK. You can close this window and return to the terminal.")
			codeCh <- q.Get("code")
		}
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()

	// 2) URL de autorización (offline => refresh token)
	authURL := conf.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Println("\nOpen this URL in your browser:")
	fmt.Println(authURL)
	fmt.Println("\nWaiting for authorization on:", redirectURL)

	// 3) Espera code o error
	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		_ = srv.Close()
		log.Fatal(err)
	case <-time.After(*timeout):
		_ = srv.Close()
		log.Fatal("timed out waiting for authorization")
	}
	_ = srv.Close()

	// 4) Intercambia code por tokens
	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		log.Fatal(err)
	}

	// Sin prompt=consent Google puede omitir el refresh token si ya hubo
	// una autorización previa.
	if strings.TrimSpace(tok.RefreshToken) == "" {
		fmt.Println("\nNo refresh_token was returned.")
		fmt.Println("Revoke the app's previous access in your Google Account and run this again:")
		fmt.Println("https://myaccount.google.com/permissions")
		os.Exit(1)
	}

	if *verify {
		ds, err := drive.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, tok)))
		if err != nil {
			log.Fatal(err)
		}
		if _, err := ds.Files.List().PageSize(1).Fields("files(id)").Context(ctx).Do(); err != nil {
			log.Fatalf("token works for OAuth but Drive rejected it: %v", err)
		}
	}

	fmt.Println("\nAdd this to your .env:")
	fmt.Printf("GDRIVE_REFRESH_TOKEN=%s\n", tok.RefreshToken)
}

func mustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		log.Fatalf("missing env: %s", k)
	}
	return v
}

func randomState() string {
	b := make([]byte, 18)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
