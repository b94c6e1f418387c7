// main package for the speech-client, a command-line caller of POST /generate-speech.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Flag descriptions.
const (
	flagURLDesc      = "Base URL of the voice clone service"
	flagTextDesc     = "Text to convert to speech"
	flagSpeakerDesc  = "Speaker name (fuzzy matched against the reference voices)"
	flagLanguageDesc = "Language code"
	flagTokenDesc    = "Bearer token (defaults to $BEARER_TOKEN)"
	flagTimeoutDesc  = "Request timeout"
)

// Flag names.
const (
	flagURL      = "url"
	flagText     = "text"
	flagSpeaker  = "speaker"
	flagLanguage = "language"
	flagToken    = "token"
	flagTimeout  = "timeout"
)

const (
	defaultURL      = "http://127.0.0.1:9000"
	defaultLanguage = "en"
	defaultTimeout  = 5 * time.Minute
	envBearerToken  = "BEARER_TOKEN"
	generatePath    = "/generate-speech"
)

var (
	errTextRequired  = errors.New("--text must be provided")
	errTokenRequired = errors.New("--token or " + envBearerToken + " must be provided")
	errServiceFailed = errors.New("service returned an error")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	url      string
	text     string
	speaker  string
	language string
	token    string
	timeout  time.Duration
}

type generateRequest struct {
	Text     string `json:"text"`
	Speaker  string `json:"speaker,omitempty"`
	Language string `json:"language,omitempty"`
}

type generateResponse struct {
	Status        string `json:"status"`
	OutputFileURL string `json:"output_file_url"`
	Filename      string `json:"filename"`
	Error         string `json:"error"`
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	validateErr := validateFlags(flags)
	if validateErr != nil {
		return validateErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	resp, err := requestSpeech(ctx, http.DefaultClient, flags)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n%s\n", resp.Filename, resp.OutputFileURL)

	return nil
}

// parseFlags parses args into appFlags; the token falls back to the environment.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("speech-client", flag.ContinueOnError)
	flagSet.StringVar(&flags.url, flagURL, defaultURL, flagURLDesc)
	flagSet.StringVar(&flags.text, flagText, "", flagTextDesc)
	flagSet.StringVar(&flags.speaker, flagSpeaker, "", flagSpeakerDesc)
	flagSet.StringVar(&flags.language, flagLanguage, defaultLanguage, flagLanguageDesc)
	flagSet.StringVar(&flags.token, flagToken, os.Getenv(envBearerToken), flagTokenDesc)
	flagSet.DurationVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return appFlags{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	return flags, nil
}

func validateFlags(flags appFlags) error {
	if strings.TrimSpace(flags.text) == "" {
		return errTextRequired
	}

	if flags.token == "" {
		return errTokenRequired
	}

	return nil
}

// requestSpeech posts the synthesis request and decodes the service response.
func requestSpeech(ctx context.Context, client *http.Client, flags appFlags) (*generateResponse, error) {
	body, err := json.Marshal(generateRequest{Text: flags.text, Speaker: flags.speaker, Language: flags.language})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(flags.url, "/") + generatePath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+flags.token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var decoded generateResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response (%s): %w", resp.Status, decodeErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w (%s): %s", errServiceFailed, resp.Status, decoded.Error)
	}

	return &decoded, nil
}
