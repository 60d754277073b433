package cookies

import (
	"net/http"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero when the browser owns expiry
}

type op struct {
	cookie  Cookie
	deleted bool
}

// Jar mirrors one browser's cookies on the server. Writes apply to the mirror
// at once and are queued until the next response flushes them, so writes made
// outside a request (timer-driven expiry) still reach the browser.
type Jar struct {
	mu      sync.Mutex
	values  map[string]entry
	pending map[string]op
	order   []string
	secure  bool
	now     func() time.Time
}

// NewJar builds an empty jar. secure adds the Secure attribute on flush.
func NewJar(secure bool, now func() time.Time) *Jar {
	if now == nil {
		now = time.Now
	}
	return &Jar{
		values:  make(map[string]entry),
		pending: make(map[string]op),
		secure:  secure,
		now:     now,
	}
}

// Load replaces the mirror with the request's cookies. Names with a queued
// write keep the server value since the browser has not seen it yet.
func (j *Jar) Load(r *http.Request) {
	j.mu.Lock()
	defer j.mu.Unlock()

	next := make(map[string]entry)
	for _, c := range r.Cookies() {
		if _, queued := j.pending[c.Name]; queued {
			continue
		}
		next[c.Name] = entry{value: c.Value}
	}
	for name := range j.pending {
		if e, ok := j.values[name]; ok {
			next[name] = e
		}
	}
	j.values = next
}

func (j *Jar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.values[name]
	if !ok {
		return "", false
	}
	if !e.expiresAt.IsZero() && !j.now().Before(e.expiresAt) {
		delete(j.values, name)
		return "", false
	}
	return e.value, true
}

func (j *Jar) Set(c Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e := entry{value: c.Value}
	if !c.Session && c.MaxAge > 0 {
		e.expiresAt = j.now().Add(c.MaxAge)
	}
	j.values[c.Name] = e
	j.queue(c.Name, op{cookie: c})
}

func (j *Jar) Delete(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	delete(j.values, name)
	j.queue(name, op{cookie: Cookie{Name: name}, deleted: true})
}

func (j *Jar) Available() bool { return true }

func (j *Jar) queue(name string, o op) {
	if _, ok := j.pending[name]; !ok {
		j.order = append(j.order, name)
	}
	j.pending[name] = o
}

// Pending reports how many writes await a flush.
func (j *Jar) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// Flush writes every queued cookie to w with Path=/ and SameSite=Lax.
func (j *Jar) Flush(w http.ResponseWriter) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, name := range j.order {
		o := j.pending[name]
		hc := &http.Cookie{
			Name:     name,
			Value:    o.cookie.Value,
			Path:     "/",
			HttpOnly: o.cookie.HttpOnly,
			Secure:   j.secure,
			SameSite: http.SameSiteLaxMode,
		}
		switch {
		case o.deleted:
			hc.MaxAge = -1
		case !o.cookie.Session:
			hc.MaxAge = maxAgeSeconds(o.cookie.MaxAge)
		}
		http.SetCookie(w, hc)
	}
	j.pending = make(map[string]op)
	j.order = nil
}

// maxAgeSeconds never rounds a live cookie down to zero, which would turn it
// into a session cookie.
func maxAgeSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
