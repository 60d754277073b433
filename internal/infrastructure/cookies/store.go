// Package cookies is the popup persistence adapter: a small flag store backed by
// browser cookies, with typed accessors for the popup flags.
package cookies

import "time"

// Cookie names shared with the browser.
const (
	CooldownName  = "discount_popup_cooldown"
	DismissedName = "discount_popup_dismissed"
	CodeName      = "discount_code"
	ExpiresAtName = "discount_expires_at"
	SessionName   = "discount_session"
)

// Cookie is a pending flag write. A zero MaxAge with Session set produces a
// browser-session cookie.
type Cookie struct {
	Name     string
	Value    string
	MaxAge   time.Duration
	HttpOnly bool
	Session  bool
}

// Store is the get/set/delete surface the engine persists through.
// Implementations never fail; an unusable store reports every flag absent.
type Store interface {
	Get(name string) (string, bool)
	Set(c Cookie)
	Delete(name string)
	Available() bool
}

// UnavailableStore stands in when cookies cannot be used at all.
type UnavailableStore struct{}

func (UnavailableStore) Get(string) (string, bool) { return "", false }
func (UnavailableStore) Set(Cookie)                {}
func (UnavailableStore) Delete(string)             {}
func (UnavailableStore) Available() bool           { return false }
