package service

import (
	"context"
	"strings"

	"foodshare/internal/model"
	"foodshare/internal/policy"
	"foodshare/internal/repository"
)

// UserService covers the admin-only user operations this service owns.
type UserService interface {
	// Delete removes a user mirror row with the user's donations and orders.
	Delete(ctx context.Context, actor model.Actor, id string) error
}

type userService struct {
	repo repository.DonationRepository
	opts Options
}

func NewUserService(repo repository.DonationRepository, opts Options) UserService {
	return &userService{repo: repo, opts: opts.withDefaults()}
}

func (s *userService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.Authenticated() {
		return unauthenticated()
	}
	if !policy.CanManageUsers(actor) {
		return forbidden("only administrators can delete users")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("id", "this field is required")
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return fromStore(err, "user")
	}
	ctxLogger(ctx, s.opts.Logger).Info().
		Str("event", "user_deleted").
		Str("user_id", id).
		Str("actor_id", actor.ID).
		Send()
	return nil
}
