package fixtures

import (
	"context"

	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
)

const exportBatch = 500

type EmailUserManager interface {
	List(ctx context.Context, f query.ListFilter) ([]*models.EmailUser, int, error)
	Get(ctx context.Context, id string) (*models.EmailUser, error)
	Restore(ctx context.Context, u *models.EmailUser) error
}

type ProfileUserManager interface {
	List(ctx context.Context, f query.ListFilter) ([]*models.ProfileUser, int, error)
	Get(ctx context.Context, id string) (*models.ProfileUser, error)
	Restore(ctx context.Context, u *models.ProfileUser) error
}

type emailUsers struct{ m EmailUserManager }

func EmailUsers(m EmailUserManager) Store[*models.EmailUser] {
	return emailUsers{m: m}
}

func (s emailUsers) Label() string               { return models.EmailAppLabel + "." + models.EmailModelName }
func (s emailUsers) ID(u *models.EmailUser) string { return u.ID }

func (s emailUsers) Export(ctx context.Context) ([]*models.EmailUser, error) {
	return export(ctx, s.m.List, s.m.Get, func(u *models.EmailUser) string { return u.ID })
}

func (s emailUsers) Import(ctx context.Context, u *models.EmailUser) error {
	return s.m.Restore(ctx, u)
}

type profileUsers struct{ m ProfileUserManager }

func ProfileUsers(m ProfileUserManager) Store[*models.ProfileUser] {
	return profileUsers{m: m}
}

func (s profileUsers) Label() string                 { return models.ProfileAppLabel + "." + models.ProfileModelName }
func (s profileUsers) ID(u *models.ProfileUser) string { return u.ID }

func (s profileUsers) Export(ctx context.Context) ([]*models.ProfileUser, error) {
	return export(ctx, s.m.List, s.m.Get, func(u *models.ProfileUser) string { return u.ID })
}

func (s profileUsers) Import(ctx context.Context, u *models.ProfileUser) error {
	return s.m.Restore(ctx, u)
}

// export pages through the accounts ordered by date joined, then reloads
// each one so groups and permissions are included.
func export[T any](
	ctx context.Context,
	list func(context.Context, query.ListFilter) ([]T, int, error),
	get func(context.Context, string) (T, error),
	id func(T) string,
) ([]T, error) {
	var out []T
	for offset := 0; ; offset += exportBatch {
		page, total, err := list(ctx, query.ListFilter{Ordering: []string{"date_joined"}, Limit: exportBatch, Offset: offset})
		if err != nil {
			return nil, err
		}
		for _, it := range page {
			full, err := get(ctx, id(it))
			if err != nil {
				return nil, err
			}
			out = append(out, full)
		}
		if len(page) == 0 || offset+len(page) >= total {
			return out, nil
		}
	}
}
