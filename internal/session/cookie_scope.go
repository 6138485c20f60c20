package session

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/sessions"

	"github.com/soaringjerry/gradtrack/internal/kv"
)

// CookieName is the gorilla session cookie carrying the scope.
const CookieName = "gradtrack-session"

// NewCookieStore returns a cookie store whose cookies end with the browser session.
func NewCookieStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// CookieScope exposes one request's gorilla session as a kv.Store. Writes save the
// cookie onto the response, so it must be used before the body is written.
type CookieScope struct {
	mu   sync.Mutex
	sess *sessions.Session
	w    http.ResponseWriter
	r    *http.Request
}

// NewCookieScope loads the session for r. A cookie that fails to decode starts empty.
func NewCookieScope(store sessions.Store, w http.ResponseWriter, r *http.Request) *CookieScope {
	sess, err := store.Get(r, CookieName)
	if err != nil {
		// gorilla returns a fresh session alongside decode errors
		sess, _ = store.New(r, CookieName)
	}
	return &CookieScope{sess: sess, w: w, r: r}
}

func versionKey(key string) string { return key + "#v" }

func (c *CookieScope) version(key string) int64 {
	switch v := c.sess.Values[versionKey(key)].(type) {
	case int64:
		return v
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

func (c *CookieScope) Get(_ context.Context, key string) (kv.Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.sess.Values[key].(string)
	if !ok {
		return kv.Entry{Version: c.version(key)}, false, nil
	}
	return kv.Entry{Value: v, Version: c.version(key)}, true, nil
}

func (c *CookieScope) Set(_ context.Context, key, value string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.put(key, value)
}

func (c *CookieScope) CompareAndSet(_ context.Context, key, value string, version int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version(key) != version {
		return 0, kv.ErrVersionConflict
	}
	return c.put(key, value)
}

// Delete drops the value but keeps counting its version in the cookie.
func (c *CookieScope) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sess.Values[key]; !ok {
		return nil
	}
	delete(c.sess.Values, key)
	c.sess.Values[versionKey(key)] = strconv.FormatInt(c.version(key)+1, 10)
	return c.sess.Save(c.r, c.w)
}

func (c *CookieScope) put(key, value string) (int64, error) {
	v := c.version(key) + 1
	c.sess.Values[key] = value
	c.sess.Values[versionKey(key)] = strconv.FormatInt(v, 10)
	if err := c.sess.Save(c.r, c.w); err != nil {
		return 0, err
	}
	return v, nil
}

var _ kv.Store = (*CookieScope)(nil)
