package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"blogapi/database"
	"blogapi/models"
	"blogapi/pagination"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore keeps posts and users in memory and mirrors the filter and
// ownership rules of the Mongo repositories.
type memStore struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]models.Post
	users map[primitive.ObjectID]models.User

	failWith   error
	countCalls int
}

func newMemStore() *memStore {
	return &memStore{
		posts: make(map[primitive.ObjectID]models.Post),
		users: make(map[primitive.ObjectID]models.User),
	}
}

func (m *memStore) addUser(name, email string) primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: primitive.NewObjectID(), Name: name, Email: email}
	m.users[u.ID] = u
	return u.ID
}

func (m *memStore) Insert(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.posts[post.ID] = *post
	return nil
}

func matches(p models.Post, f database.PostFilter) bool {
	if f.PublishedOnly && !p.IsPublished {
		return false
	}
	if f.Owner != nil && p.CreatedBy != *f.Owner {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		hit := strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q)
		for _, tag := range p.Tags {
			hit = hit || strings.Contains(strings.ToLower(tag), q)
		}
		if !hit {
			return false
		}
	}
	return true
}

func (m *memStore) Count(_ context.Context, f database.PostFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	if m.failWith != nil {
		return 0, m.failWith
	}
	var n int64
	for _, p := range m.posts {
		if matches(p, f) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) FindPage(_ context.Context, f database.PostFilter, opts pagination.Options) ([]models.PostWithAuthor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var hits []models.Post
	for _, p := range m.posts {
		if matches(p, f) {
			hits = append(hits, p)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID.Hex() > hits[j].ID.Hex()
	})

	out := []models.PostWithAuthor{}
	for i := opts.Skip; i < len(hits) && i < opts.Skip+opts.Limit; i++ {
		out = append(out, m.join(hits[i]))
	}
	return out, nil
}

func (m *memStore) join(p models.Post) models.PostWithAuthor {
	author := models.FallbackAuthor(p.CreatedBy)
	if u, ok := m.users[p.CreatedBy]; ok {
		author = models.Author{ID: u.ID, Name: u.Name, Email: u.Email, IsAuthor: u.IsAuthor}
	}
	return models.PostWithAuthor{Post: p, Author: author}
}

func (m *memStore) FindWithAuthor(_ context.Context, id primitive.ObjectID) (*models.PostWithAuthor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	joined := m.join(p)
	return &joined, nil
}

func (m *memStore) owned(id, owner primitive.ObjectID) (models.Post, error) {
	if m.failWith != nil {
		return models.Post{}, m.failWith
	}
	p, ok := m.posts[id]
	if !ok || p.CreatedBy != owner {
		return models.Post{}, database.ErrNotFound
	}
	return p, nil
}

func (m *memStore) UpdateOwned(_ context.Context, id, owner primitive.ObjectID, patch database.PostPatch, now time.Time) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.owned(id, owner)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.SetTags {
		p.Tags = patch.Tags
	}
	p.UpdatedAt = now
	m.posts[id] = p
	return &p, nil
}

func (m *memStore) SetPublished(_ context.Context, id, owner primitive.ObjectID, at *time.Time, now time.Time) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.owned(id, owner)
	if err != nil {
		return nil, err
	}
	if at != nil {
		t := *at
		p.IsPublished, p.IsDraft, p.PublishedAt = true, false, &t
	} else {
		p.IsPublished, p.IsDraft, p.PublishedAt = false, true, nil
	}
	p.UpdatedAt = now
	m.posts[id] = p
	return &p, nil
}

func (m *memStore) DeleteOwned(_ context.Context, id, owner primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.owned(id, owner); err != nil {
		return err
	}
	delete(m.posts, id)
	return nil
}

func (m *memStore) MarkAuthor(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.IsAuthor {
		return false, nil
	}
	u.IsAuthor = true
	u.AuthorSince = &at
	m.users[id] = u
	return true, nil
}

// user side

func (m *memStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	u.Password = ""
	return &u, nil
}

type memUsers struct {
	*memStore
}

// Insert on the user side; memStore.Insert stores posts.
func (m memUsers) Insert(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return database.ErrDuplicate
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memStore) SetVerificationFailed(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.EmailVerificationFailed = true
	m.users[id] = u
	return nil
}

func (m *memStore) VerifyByToken(_ context.Context, token string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.VerificationToken == token && u.VerificationTokenExpires != nil && u.VerificationTokenExpires.After(now) {
			u.IsVerified = true
			u.VerificationToken = ""
			u.VerificationTokenExpires = nil
			m.users[id] = u
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *memStore) SetResetToken(_ context.Context, id primitive.ObjectID, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.ResetPasswordToken = token
	u.ResetPasswordExpires = &expires
	m.users[id] = u
	return nil
}

func (m *memStore) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.ResetPasswordToken = ""
	u.ResetPasswordExpires = nil
	m.users[id] = u
	return nil
}

func (m *memStore) ResetPasswordByToken(_ context.Context, token, hash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.ResetPasswordToken == token && u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now) {
			u.Password = hash
			u.ResetPasswordToken = ""
			u.ResetPasswordExpires = nil
			m.users[id] = u
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *memStore) List(_ context.Context) ([]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserSummary{}
	for _, u := range m.users {
		out = append(out, models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, IsVerified: u.IsVerified})
	}
	return out, nil
}

func (m *memStore) Stats(_ context.Context) (models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s models.UserStats
	for _, u := range m.users {
		s.TotalUsers++
		if u.IsAuthor {
			s.TotalAuthors++
		}
		if u.IsVerified {
			s.VerifiedUsers++
		}
	}
	s.RegularUsers = s.TotalUsers - s.TotalAuthors
	return s, nil
}

func (m *memStore) UpdateProfile(_ context.Context, id primitive.ObjectID, upd database.ProfileUpdate, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		u.ProfilePicture = *upd.ProfilePicture
	}
	if upd.SocialLinks != nil {
		u.SocialLinks = *upd.SocialLinks
	}
	u.UpdatedAt = now
	m.users[id] = u
	u.Password = ""
	return &u, nil
}

// stepClock returns strictly increasing times so creation order is stable.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
