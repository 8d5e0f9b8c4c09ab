package core

import (
	"sort"

	"golang.org/x/text/cases"
)

// noModePriority sorts members without a known prefix after every known one.
const noModePriority = 1 << 16

// User is a channel member.
type User struct {
	Nick string
	Mode string
}

var folder = cases.Fold()

// FoldNick returns the case-insensitive key for a nickname.
func FoldNick(nick string) string {
	return folder.String(nick)
}

// FoldedMap is a map keyed by case-folded nicknames. Keys are folded on
// every insert and lookup, callers never fold themselves.
type FoldedMap[V any] struct {
	items map[string]V
}

// NewFoldedMap returns an empty map.
func NewFoldedMap[V any]() *FoldedMap[V] {
	return &FoldedMap[V]{items: make(map[string]V)}
}

func (m *FoldedMap[V]) Set(key string, v V) { m.items[FoldNick(key)] = v }

func (m *FoldedMap[V]) Delete(key string) { delete(m.items, FoldNick(key)) }

func (m *FoldedMap[V]) Get(key string) (V, bool) {
	v, ok := m.items[FoldNick(key)]
	return v, ok
}

func (m *FoldedMap[V]) Len() int { return len(m.items) }

// Values returns the values in unspecified order.
func (m *FoldedMap[V]) Values() []V {
	out := make([]V, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, v)
	}
	return out
}

// Roster is the member list of one channel. It is not safe for concurrent
// use; Channel serializes access.
type Roster struct {
	users *FoldedMap[*User]
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{users: NewFoldedMap[*User]()}
}

// SetUser inserts or overwrites the member with the same folded nick.
func (r *Roster) SetUser(u *User) {
	r.users.Set(u.Nick, u)
}

// RemoveUser deletes the member with the same folded nick.
func (r *Roster) RemoveUser(u *User) {
	r.users.Delete(u.Nick)
}

// FindUser returns the tracked member for nick.
func (r *Roster) FindUser(nick string) (*User, bool) {
	return r.users.Get(nick)
}

// GetUser returns the tracked member or an untracked placeholder carrying
// only the nick.
func (r *Roster) GetUser(nick string) *User {
	if u, ok := r.FindUser(nick); ok {
		return u
	}
	return &User{Nick: nick}
}

// RenameUser moves a member to a new nick. The old key is removed before the
// new one is inserted. Returns false if oldNick is not tracked.
func (r *Roster) RenameUser(oldNick, newNick string) bool {
	u, ok := r.FindUser(oldNick)
	if !ok {
		return false
	}
	r.RemoveUser(u)
	r.SetUser(&User{Nick: newNick, Mode: u.Mode})
	return true
}

// Reset replaces the whole member list.
func (r *Roster) Reset(users []User) {
	r.users = NewFoldedMap[*User]()
	for i := range users {
		u := users[i]
		r.SetUser(&u)
	}
}

func (r *Roster) Len() int { return r.users.Len() }

// SortedUsers orders members by the position of their mode in prefix
// (highest privilege first), then by folded nick. Members whose mode is not
// listed sort last.
func (r *Roster) SortedUsers(prefix []string) []User {
	priority := make(map[string]int, len(prefix))
	for i, p := range prefix {
		if _, seen := priority[p]; !seen {
			priority[p] = i
		}
	}
	rank := func(mode string) int {
		if p, ok := priority[mode]; ok && mode != "" {
			return p
		}
		return noModePriority
	}

	members := r.users.Values()
	out := make([]User, len(members))
	for i, u := range members {
		out[i] = *u
	}

	sort.Slice(out, func(i, j int) bool {
		ri, rj := rank(out[i].Mode), rank(out[j].Mode)
		if ri != rj {
			return ri < rj
		}
		fi, fj := FoldNick(out[i].Nick), FoldNick(out[j].Nick)
		if fi != fj {
			return fi < fj
		}
		return out[i].Nick < out[j].Nick
	})
	return out
}
