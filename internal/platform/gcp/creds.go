package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/agentic-studio/internal/platform/envutil"
)

func CredentialsFromEnv() string {
	if creds := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", ""); creds != "" {
		return creds
	}
	return envutil.String("GOOGLE_APPLICATION_CREDENTIALS", "")
}

// ClientOptions accepts either inline service-account JSON or a file path.
func ClientOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
