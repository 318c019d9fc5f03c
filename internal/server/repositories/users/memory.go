package users

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. Every check-and-write runs
// under one mutex, which gives the same uniqueness guarantee as the database
// constraints. Used when no DSN is configured and in tests.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]models.User
	byEmail    map[string]string
	byUserName map[string]string
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]models.User),
		byEmail:    make(map[string]string),
		byUserName: make(map[string]string),
		now:        time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrEmailTaken
	}
	if _, ok := r.byUserName[user.UserName]; ok {
		return nil, common.ErrUsernameTaken
	}

	created := *user
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if _, ok := r.byID[created.ID]; ok {
		return nil, common.ErrorConflict
	}
	created.Profile = maps.Clone(created.Profile)
	created.CreatedAt = r.now().UTC()
	created.UpdatedAt = created.CreatedAt

	r.byID[created.ID] = created
	r.byEmail[created.Email] = created.ID
	r.byUserName[created.UserName] = created.ID

	return cloneUser(created), nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getByIndex(ctx, r.byEmail, email)
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, userName string) (*models.User, error) {
	return r.getByIndex(ctx, r.byUserName, userName)
}

func (r *MemoryRepository) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if patch.Empty() {
		return cloneUser(current), nil
	}

	updated := patch.Apply(current)
	updated.Profile = maps.Clone(updated.Profile)

	if owner, ok := r.byEmail[updated.Email]; ok && owner != id {
		return nil, common.ErrEmailTaken
	}
	if owner, ok := r.byUserName[updated.UserName]; ok && owner != id {
		return nil, common.ErrUsernameTaken
	}

	delete(r.byEmail, current.Email)
	delete(r.byUserName, current.UserName)
	r.byEmail[updated.Email] = id
	r.byUserName[updated.UserName] = id

	updated.UpdatedAt = r.now().UTC()
	r.byID[id] = updated

	return cloneUser(updated), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}

	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	delete(r.byUserName, u.UserName)
	return nil
}

func (r *MemoryRepository) getByIndex(ctx context.Context, index map[string]string, key string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := index[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func cloneUser(u models.User) *models.User {
	u.Profile = maps.Clone(u.Profile)
	return &u
}
