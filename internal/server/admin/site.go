// Package admin describes how account models are managed by staff: list
// columns, filters, search, form layout and the operations behind the admin
// pages. It knows nothing about HTTP.
package admin

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/server/models"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/query"
)

// ModelAdmin is the admin of one account model.
type ModelAdmin interface {
	Options() Options
	List(ctx context.Context, f query.ListFilter) (*Page, error)
	Detail(ctx context.Context, id string) (*Record, error)
	Add(ctx context.Context, form AddForm) (*Record, error)
	Change(ctx context.Context, id string, form ChangeForm) (*Record, error)
	SetPassword(ctx context.Context, id string, form PasswordForm) error
	Delete(ctx context.Context, id string) error
	EmailUser(ctx context.Context, id string, form EmailForm) error
}

// Site is a registry of model admins keyed by "<app_label>.<model_name>".
type Site struct {
	Title string

	mu     sync.RWMutex
	admins map[string]ModelAdmin
}

func NewSite(title string) *Site {
	return &Site{Title: title, admins: make(map[string]ModelAdmin)}
}

// Register adds ma to the site. A model can be registered once.
func (s *Site) Register(ma ModelAdmin) error {
	label := ma.Options().Label()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[label]; ok {
		return fmt.Errorf("%w: model %s is already registered", common.ErrorAlreadyExists, label)
	}
	s.admins[label] = ma
	return nil
}

func (s *Site) Lookup(appLabel, modelName string) (ModelAdmin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ma, ok := s.admins[appLabel+"."+modelName]
	if !ok {
		return nil, fmt.Errorf("%w: model %s.%s is not registered", common.ErrorNotFound, appLabel, modelName)
	}
	return ma, nil
}

// Models returns the registered admins ordered by label.
func (s *Site) Models() []ModelAdmin {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ModelAdmin, 0, len(s.admins))
	for _, ma := range s.admins {
		out = append(out, ma)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Options().Label() < out[j].Options().Label()
	})
	return out
}

// HasPermission reports whether acc may use the admin at all: it must be
// active and staff.
func (s *Site) HasPermission(acc models.Account) bool {
	return acc != nil && acc.Active() && acc.Staff()
}

// AvailableModels returns the models acc can view.
func (s *Site) AvailableModels(acc models.Account) []ModelAdmin {
	var out []ModelAdmin
	for _, ma := range s.Models() {
		o := ma.Options()
		if acc.HasModulePerms(o.AppLabel) && o.HasViewPermission(acc) {
			out = append(out, ma)
		}
	}
	return out
}
