package jellyfin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mross/tempo/internal/domain"
)

// AuthFlow handles the interactive username/password exchange that
// produces the session triple everything else depends on.
type AuthFlow struct {
	gw     *Gateway
	logger *slog.Logger
}

// NewAuthFlow creates a new authentication flow.
func NewAuthFlow(gw *Gateway, logger *slog.Logger) *AuthFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthFlow{gw: gw, logger: logger}
}

// Run prompts for credentials on the terminal and authenticates against
// the server.
func (f *AuthFlow) Run(ctx context.Context, serverURL string) (*domain.AuthResult, error) {
	serverURL = strings.TrimRight(serverURL, "/")

	fmt.Println()
	fmt.Println("Jellyfin Authentication")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	return f.Authenticate(ctx, serverURL, username, string(passwordBytes))
}

// Authenticate performs the AuthenticateByName exchange.
func (f *AuthFlow) Authenticate(ctx context.Context, serverURL, username, password string) (*domain.AuthResult, error) {
	body, err := json.Marshal(map[string]string{
		"Username": username,
		"Pw":       password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":         "application/json",
		"X-Emby-Authorization": buildAuthHeader(""),
	}

	var resp AuthResponse
	reqURL := strings.TrimRight(serverURL, "/") + "/Users/AuthenticateByName"
	if err := f.gw.JSON(ctx, "POST", reqURL, headers, body, &resp); err != nil {
		f.logger.Error("authentication failed", "error", err)
		return nil, err
	}

	if resp.AccessToken == "" || resp.User.ID == "" {
		return nil, fmt.Errorf("auth response missing token or user id")
	}

	return &domain.AuthResult{
		Token:    resp.AccessToken,
		UserID:   resp.User.ID,
		Username: resp.User.Name,
	}, nil
}

// buildAuthHeader constructs the X-Emby-Authorization header sent
// before a token exists.
func buildAuthHeader(token string) string {
	parts := []string{
		`MediaBrowser Client="Tempo"`,
		`Device="CLI"`,
		`DeviceId="tempo-tui-client"`,
		`Version="1.0.0"`,
	}
	if token != "" {
		parts = append(parts, fmt.Sprintf(`Token=%q`, token))
	}
	return strings.Join(parts, ", ")
}

// PromptForServerURL prompts the user to enter a Jellyfin server URL.
func PromptForServerURL() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Enter your Jellyfin server URL (e.g., http://192.168.1.100:8096): ")
	serverURL, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(serverURL), nil
}
