package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/adapters/wazend"
	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/joho/godotenv"
)

type output struct {
	StatusCode   int             `json:"statusCode"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	NoProfile    bool            `json:"noProfile"`
	Profile      *domain.Profile `json:"profile"`
	Payload      json.RawMessage `json:"payload"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	baseURL := os.Getenv("WAZEND_BASE_URL")
	if baseURL == "" {
		log.Fatal("No Wazend base url provided")
	}
	apiKey := os.Getenv("WAZEND_API_KEY")
	if apiKey == "" {
		log.Fatal("No Wazend API key provided")
	}

	if len(os.Args) < 2 || os.Args[1] == "" {
		log.Fatal("No session name provided")
	}
	session := os.Args[1]

	client, err := wazend.NewClient(&http.Client{}, baseURL, time.Now, time.After)
	if err != nil {
		log.Fatalf("Failed to create Wazend client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.GetProfile(ctx, apiKey, session)
	if err != nil {
		result = domain.ResultFromError(err)
	}

	out := output{
		StatusCode:   result.StatusCode,
		ErrorMessage: result.ErrorMessage,
		NoProfile:    result.NoProfile(),
		Payload:      result.Payload,
	}
	if !result.Failed() && !result.NoProfile() {
		profile, err := domain.ParseProfile(result.Payload)
		if err != nil {
			log.Printf("Failed to parse profile: %v", err)
		} else {
			out.Profile = &profile
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal result: %v", err)
	}
	fmt.Println(string(data))

	if result.Failed() {
		os.Exit(1)
	}
}
