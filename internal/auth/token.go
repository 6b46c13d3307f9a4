package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type TokenPayload struct {
	UserID    int64  `json:"userId"`
	Timestamp string `json:"timestamp"`
}

// IssueToken encrypts a fresh payload for the user.
func IssueToken(userID int64, secret string) (string, error) {
	p := TokenPayload{
		UserID:    userID,
		Timestamp: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return Encrypt(string(b), secret)
}

// ParseToken decrypts the token and returns its payload.
func ParseToken(token, secret string) (*TokenPayload, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	plain, err := Decrypt(token, secret)
	if err != nil {
		return nil, err
	}
	var p TokenPayload
	if err := json.Unmarshal([]byte(plain), &p); err != nil {
		return nil, err
	}
	if p.UserID <= 0 || p.Timestamp == "" {
		return nil, errors.New("invalid token payload")
	}
	return &p, nil
}

// ExtractToken gets the token from the Authorization header (Bearer) or a
// query parameter; the query form is what the WebSocket upgrade uses.
func ExtractToken(r *http.Request, header, bearerPrefix, queryKey string) string {
	if header != "" {
		v := strings.TrimSpace(r.Header.Get(header))
		if v != "" {
			if bearerPrefix != "" && strings.HasPrefix(v, bearerPrefix) {
				return strings.TrimSpace(strings.TrimPrefix(v, bearerPrefix))
			}
			return v
		}
	}
	if queryKey != "" {
		if q := strings.TrimSpace(r.URL.Query().Get(queryKey)); q != "" {
			return q
		}
	}
	return ""
}
