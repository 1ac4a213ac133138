package users

import "slices"

// Store is the in-memory user directory: a primary map keyed by id and
// secondary indexes for email, auth token and auth JWT token.
//
// Store is not safe for concurrent use; Service guards it.
type Store struct {
	byID          map[string]UserRecord
	idByEmail     map[string]string
	idByAuthToken map[string]string
	idByAuthJwt   map[string]string
}

func NewStore() *Store {
	s := &Store{byID: make(map[string]UserRecord)}
	s.RebuildIndexes()
	return s
}

func (s *Store) Len() int { return len(s.byID) }

// All returns copies of every record ordered by id.
func (s *Store) All() []UserRecord {
	out := make([]UserRecord, 0, len(s.byID))
	for _, id := range s.sortedIDs() {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

func (s *Store) ByID(id string) (UserRecord, bool) {
	r, ok := s.byID[id]
	if !ok {
		return UserRecord{}, false
	}
	return r.Clone(), true
}

func (s *Store) ByEmail(email string) (UserRecord, bool) {
	return s.lookup(s.idByEmail, email, emailOf)
}

func (s *Store) ByAuthToken(token string) (UserRecord, bool) {
	return s.lookup(s.idByAuthToken, token, authTokenOf)
}

func (s *Store) ByAuthJwtToken(token string) (UserRecord, bool) {
	return s.lookup(s.idByAuthJwt, token, authJwtOf)
}

// ByPasswordResetToken scans the records; reset tokens are rare and short lived.
func (s *Store) ByPasswordResetToken(token string) (UserRecord, bool) {
	return s.scan(token, func(r UserRecord) string { return r.PasswordResetToken })
}

func (s *Store) ByPasswordResetJwtToken(token string) (UserRecord, bool) {
	return s.scan(token, func(r UserRecord) string { return r.PasswordResetJwtToken })
}

// Put inserts r or replaces the record with the same id. Indexes are not
// touched; call RebuildIndexes afterwards. Until then a key r no longer
// carries stops resolving, and a key r gained does not resolve yet.
func (s *Store) Put(r UserRecord) {
	s.byID[r.ID] = r.Clone()
}

// RemoveByID reports whether a record was removed.
func (s *Store) RemoveByID(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	return true
}

func (s *Store) RemoveByEmail(email string) bool {
	return s.removeVia(s.idByEmail, email, emailOf)
}

func (s *Store) RemoveByAuthToken(token string) bool {
	return s.removeVia(s.idByAuthToken, token, authTokenOf)
}

func (s *Store) RemoveByAuthJwtToken(token string) bool {
	return s.removeVia(s.idByAuthJwt, token, authJwtOf)
}

// Clear drops every record and index entry.
func (s *Store) Clear() {
	s.byID = make(map[string]UserRecord)
	s.RebuildIndexes()
}

// RebuildIndexes repopulates the secondary indexes from the primary map.
// Records are visited in id order, so when two records share a key the one
// with the greater id wins, the same way on every rebuild. Empty keys are not
// indexed.
func (s *Store) RebuildIndexes() {
	s.idByEmail = make(map[string]string, len(s.byID))
	s.idByAuthToken = make(map[string]string, len(s.byID))
	s.idByAuthJwt = make(map[string]string, len(s.byID))

	for _, id := range s.sortedIDs() {
		r := s.byID[id]
		if r.Email != "" {
			s.idByEmail[r.Email] = id
		}
		if r.AuthToken != "" {
			s.idByAuthToken[r.AuthToken] = id
		}
		if r.AuthJwtToken != "" {
			s.idByAuthJwt[r.AuthJwtToken] = id
		}
	}
}

func emailOf(r UserRecord) string     { return r.Email }
func authTokenOf(r UserRecord) string { return r.AuthToken }
func authJwtOf(r UserRecord) string   { return r.AuthJwtToken }

// resolve follows index and checks the record still carries key.
func (s *Store) resolve(index map[string]string, key string, field func(UserRecord) string) (string, bool) {
	if key == "" {
		return "", false
	}
	id, ok := index[key]
	if !ok {
		return "", false
	}
	r, ok := s.byID[id]
	if !ok || field(r) != key {
		return "", false
	}
	return id, true
}

func (s *Store) lookup(index map[string]string, key string, field func(UserRecord) string) (UserRecord, bool) {
	id, ok := s.resolve(index, key, field)
	if !ok {
		return UserRecord{}, false
	}
	return s.ByID(id)
}

func (s *Store) scan(token string, field func(UserRecord) string) (UserRecord, bool) {
	if token == "" {
		return UserRecord{}, false
	}
	for _, id := range s.sortedIDs() {
		if r := s.byID[id]; field(r) == token {
			return r.Clone(), true
		}
	}
	return UserRecord{}, false
}

func (s *Store) removeVia(index map[string]string, key string, field func(UserRecord) string) bool {
	id, ok := s.resolve(index, key, field)
	if !ok {
		return false
	}
	return s.RemoveByID(id)
}

func (s *Store) sortedIDs() []string {
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
