// Package viewcookie keeps a signed record of recently viewed profiles in the
// visitor's browser so repeat views inside a window are not counted twice.
package viewcookie

import (
	"crypto/sha256"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	CookieName = "biolinq_views"
	MaxEntries = 30
)

// Views maps biolink ids to the unix time of the last counted view.
type Views map[string]int64

type Jar struct {
	sc     *securecookie.SecureCookie
	window time.Duration
	now    func() time.Time
}

func New(secret string, window time.Duration) *Jar {
	hashKey := sha256.Sum256([]byte("biolinq-views:" + secret))
	sc := securecookie.New(hashKey[:], nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(window.Seconds()))
	return &Jar{sc: sc, window: window, now: time.Now}
}

// Load decodes the cookie and drops entries older than the window. A missing
// or tampered cookie yields an empty set.
func (j *Jar) Load(r *http.Request) Views {
	views := Views{}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return views
	}
	if err := j.sc.Decode(CookieName, c.Value, &views); err != nil {
		return Views{}
	}

	cutoff := j.now().Add(-j.window).Unix()
	for id, ts := range views {
		if ts <= cutoff {
			delete(views, id)
		}
	}
	return views
}

// Seen reports whether biolinkID was counted within the window.
func (v Views) Seen(biolinkID string) bool {
	_, ok := v[biolinkID]
	return ok
}

// Remember marks biolinkID as viewed now and writes the cookie.
func (j *Jar) Remember(w http.ResponseWriter, views Views, biolinkID string) error {
	views[biolinkID] = j.now().Unix()
	trim(views, MaxEntries)

	encoded, err := j.sc.Encode(CookieName, views)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(j.window.Seconds()),
	})
	return nil
}

// trim drops the oldest entries until at most max remain.
func trim(views Views, max int) {
	if len(views) <= max {
		return
	}
	ids := make([]string, 0, len(views))
	for id := range views {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, k int) bool { return views[ids[i]] < views[ids[k]] })
	for _, id := range ids[:len(ids)-max] {
		delete(views, id)
	}
}
