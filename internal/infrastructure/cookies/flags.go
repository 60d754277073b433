package cookies

import "time"

const flagOn = "1"

// DismissedCap bounds how long a dismissal suppresses re-display.
const DismissedCap = 24 * time.Hour

// Flags is the typed view of the popup cookies.
type Flags struct {
	store Store
}

func NewFlags(store Store) *Flags {
	if store == nil {
		store = UnavailableStore{}
	}
	return &Flags{store: store}
}

func (f *Flags) Available() bool { return f.store.Available() }

func (f *Flags) Cooldown() bool {
	_, ok := f.store.Get(CooldownName)
	return ok
}

func (f *Flags) SetCooldown(d time.Duration) {
	f.store.Set(Cookie{Name: CooldownName, Value: flagOn, MaxAge: d})
}

func (f *Flags) Dismissed() bool {
	_, ok := f.store.Get(DismissedName)
	return ok
}

// SetDismissed lasts until the discount would expire, capped at a day.
func (f *Flags) SetDismissed(remaining time.Duration) {
	if remaining > DismissedCap {
		remaining = DismissedCap
	}
	if remaining <= 0 {
		return
	}
	f.store.Set(Cookie{Name: DismissedName, Value: flagOn, MaxAge: remaining})
}

// ClearPopupFlags removes the cooldown and dismissed flags.
func (f *Flags) ClearPopupFlags() {
	f.store.Delete(CooldownName)
	f.store.Delete(DismissedName)
}

// SetActiveDiscount stores the signed discount token and its expiry in two
// HttpOnly cookies that live exactly as long as the discount.
func (f *Flags) SetActiveDiscount(token string, expiresAt time.Time, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	f.store.Set(Cookie{Name: CodeName, Value: token, MaxAge: ttl, HttpOnly: true})
	f.store.Set(Cookie{Name: ExpiresAtName, Value: expiresAt.UTC().Format(time.RFC3339), MaxAge: ttl, HttpOnly: true})
}

// ActiveDiscount returns the raw token and parsed expiry when both cookies exist.
func (f *Flags) ActiveDiscount() (token string, expiresAt time.Time, ok bool) {
	token, ok = f.store.Get(CodeName)
	if !ok || token == "" {
		return "", time.Time{}, false
	}
	raw, ok := f.store.Get(ExpiresAtName)
	if !ok {
		return "", time.Time{}, false
	}
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "", time.Time{}, false
	}
	return token, expiresAt, true
}

func (f *Flags) ClearActiveDiscount() {
	f.store.Delete(CodeName)
	f.store.Delete(ExpiresAtName)
}
