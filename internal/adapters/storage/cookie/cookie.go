// Package cookie implementa la capa de cookies durables sobre una request
// HTTP. Las escrituras quedan visibles para lecturas posteriores de la misma
// request.
package cookie

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/phenrril/vitrina/internal/persist"
)

// MaxAge son ~400 días, el máximo que aceptan los navegadores.
const MaxAge = 400 * 24 * 60 * 60

const maxCookieBytes = 4096

var (
	ErrTooLarge     = persist.ErrTooLarge
	ErrBadSignature = errors.New("firma de cookie inválida")
)

type Jar struct {
	r       *http.Request
	w       http.ResponseWriter
	secret  []byte
	maxAge  int
	secure  bool
	pending map[string]*string
}

type Option func(*Jar)

// WithSecret firma los valores con HMAC-SHA256; un valor mal firmado se trata
// como corrupto.
func WithSecret(secret []byte) Option { return func(j *Jar) { j.secret = secret } }

func WithSecure(secure bool) Option { return func(j *Jar) { j.secure = secure } }

func New(w http.ResponseWriter, r *http.Request, opts ...Option) *Jar {
	j := &Jar{r: r, w: w, maxAge: MaxAge, pending: map[string]*string{}}
	for _, o := range opts {
		o(j)
	}
	return j
}

func (j *Jar) Name() string { return "cookie" }

func (j *Jar) Read(_ context.Context, key string) (string, bool, error) {
	if v, ok := j.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}
	c, err := j.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	v, err := j.decode(c.Value)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (j *Jar) Write(_ context.Context, key, value string) error {
	enc := j.encode(value)
	if len(key)+len(enc) > maxCookieBytes {
		return ErrTooLarge
	}
	http.SetCookie(j.w, &http.Cookie{
		Name:     key,
		Value:    enc,
		Path:     "/",
		MaxAge:   j.maxAge,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	})
	v := value
	j.pending[key] = &v
	return nil
}

func (j *Jar) Remove(_ context.Context, key string) error {
	http.SetCookie(j.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	})
	j.pending[key] = nil
	return nil
}

func (j *Jar) encode(value string) string {
	if len(j.secret) == 0 {
		return url.QueryEscape(value)
	}
	b := []byte(value)
	h := hmac.New(sha256.New, j.secret)
	h.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return sig + "." + base64.RawURLEncoding.EncodeToString(b)
}

func (j *Jar) decode(raw string) (string, error) {
	if len(j.secret) == 0 {
		return url.QueryUnescape(raw)
	}
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 {
		return "", ErrBadSignature
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrBadSignature
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrBadSignature
	}
	h := hmac.New(sha256.New, j.secret)
	h.Write(payload)
	if !hmac.Equal(sig, h.Sum(nil)) {
		return "", ErrBadSignature
	}
	return string(payload), nil
}
