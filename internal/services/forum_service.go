package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/curalink/curalink/internal/cache"
	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/textclean"
)

// ForumRepository defines forum and post storage
type ForumRepository interface {
	List(ctx context.Context) ([]*models.Forum, error)
	GetByID(ctx context.Context, id string) (*models.Forum, error)
	Create(ctx context.Context, f *models.Forum) (*models.Forum, error)
	Delete(ctx context.Context, id string) error
	ListPosts(ctx context.Context, forumID string, limit int) ([]*models.ForumPost, error)
	CreatePost(ctx context.Context, p *models.ForumPost) error
	DeletePostsByForum(ctx context.Context, forumID string) (int64, error)
	CreateMembership(ctx context.Context, m *models.ForumMembership) error
	GetMembership(ctx context.Context, forumID, userID string) (*models.ForumMembership, error)
	DeleteMembership(ctx context.Context, forumID, userID string) error
	ListMembers(ctx context.Context, forumID string, limit int) ([]*models.ForumMembership, error)
}

const (
	// ForumListingTTL is how long the forum listing is served from memory
	ForumListingTTL = 30 * time.Second

	forumListingKey = "forums"
	postsLimit      = 200
	membersLimit    = 100

	patientSpecialty = "Patient"
)

type ForumInput struct {
	Name        string
	Description string
	Category    string
}

type PostInput struct {
	ForumID  string
	Content  string
	ParentID *string
	ImageURL *string
}

// MembershipStatus reports whether a user belongs to a forum
type MembershipStatus struct {
	IsMember   bool                    `json:"is_member"`
	Membership *models.ForumMembership `json:"membership,omitempty"`
}

// ForumService manages forums, their members and posts
type ForumService struct {
	repo     ForumRepository
	profiles ProfileRepository
	listing  *cache.TTLCache[[]*models.Forum]
	tasks    TaskEnqueuer
	logger   *slog.Logger
}

func NewForumService(repo ForumRepository, profiles ProfileRepository, listing *cache.TTLCache[[]*models.Forum], tasks TaskEnqueuer, logger *slog.Logger) *ForumService {
	return &ForumService{
		repo:     repo,
		profiles: profiles,
		listing:  listing,
		tasks:    tasks,
		logger:   logger,
	}
}

// List returns all forums, cached for ForumListingTTL
func (s *ForumService) List(ctx context.Context) ([]*models.Forum, error) {
	if forums, ok := s.listing.Get(forumListingKey); ok {
		return forums, nil
	}

	forums, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.listing.Set(forumListingKey, forums)
	return forums, nil
}

func (s *ForumService) Create(ctx context.Context, researcher *models.User, in ForumInput) (*models.Forum, error) {
	forum, err := s.repo.Create(ctx, &models.Forum{
		Name:          strings.TrimSpace(in.Name),
		Description:   textclean.StripMarkup(in.Description),
		Category:      strings.TrimSpace(in.Category),
		CreatedBy:     researcher.ID,
		CreatedByName: researcher.Name,
	})
	if err != nil {
		s.logger.Error("failed to create forum",
			slog.String("user_id", researcher.ID),
			slog.Any("error", err))
		return nil, err
	}

	s.listing.Delete(forumListingKey)
	return forum, nil
}

// Delete removes a forum owned by user. Its posts are removed by a queued
// task; if the queue refuses the task the cleanup runs inline.
func (s *ForumService) Delete(ctx context.Context, user *models.User, forumID string) error {
	forum, err := s.repo.GetByID(ctx, forumID)
	if err != nil {
		return err
	}
	if forum.CreatedBy != user.ID {
		return models.ErrForbidden
	}

	if err := s.repo.Delete(ctx, forumID); err != nil {
		return err
	}
	s.listing.Delete(forumListingKey)

	cleanup := func(ctx context.Context) error {
		return s.cleanupForum(ctx, forumID)
	}
	if err := s.tasks.Enqueue("forum_cleanup", cleanup); err != nil {
		s.logger.Warn("forum cleanup not queued, running inline",
			slog.String("forum_id", forumID),
			slog.Any("error", err))
		return cleanup(ctx)
	}
	return nil
}

func (s *ForumService) cleanupForum(ctx context.Context, forumID string) error {
	deleted, err := s.repo.DeletePostsByForum(ctx, forumID)
	if err != nil {
		return fmt.Errorf("failed to delete posts of forum %s: %w", forumID, err)
	}
	s.listing.Delete(forumListingKey)

	s.logger.Info("forum posts removed",
		slog.String("forum_id", forumID),
		slog.Int64("posts_deleted", deleted))
	return nil
}

func (s *ForumService) ListPosts(ctx context.Context, forumID string) ([]*models.ForumPost, error) {
	if _, err := s.repo.GetByID(ctx, forumID); err != nil {
		return nil, err
	}
	return s.repo.ListPosts(ctx, forumID, postsLimit)
}

// CreatePost adds a post by a member of the forum. Markup is stripped from
// the content.
func (s *ForumService) CreatePost(ctx context.Context, user *models.User, in PostInput) (*models.ForumPost, error) {
	content := textclean.StripMarkup(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is empty", models.ErrBadRequest)
	}

	if _, err := s.repo.GetByID(ctx, in.ForumID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetMembership(ctx, in.ForumID, user.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotForumMember
		}
		return nil, err
	}

	post := &models.ForumPost{
		ForumID:  in.ForumID,
		UserID:   user.ID,
		UserName: user.Name,
		UserRole: displayRole(user),
		Content:  content,
		ParentID: in.ParentID,
		ImageURL: in.ImageURL,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	s.listing.Delete(forumListingKey)
	return post, nil
}

// Join makes user a member of the forum. Patients may join any forum.
// Researchers need a profile with a specialty related to the forum category;
// a forum without a category is open to all of them. The returned bool is
// false when the user was already a member.
func (s *ForumService) Join(ctx context.Context, user *models.User, forumID string) (*models.ForumMembership, bool, error) {
	forum, err := s.repo.GetByID(ctx, forumID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetMembership(ctx, forumID, user.ID)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, false, err
	}

	membership := &models.ForumMembership{
		ForumID:   forum.ID,
		ForumName: forum.Name,
		UserID:    user.ID,
		UserName:  user.Name,
	}

	switch {
	case user.HasRole(models.RolePatient):
		membership.Specialty = patientSpecialty
	case user.HasRole(models.RoleResearcher):
		profile, err := s.profiles.GetResearcherProfile(ctx, user.ID)
		if err != nil {
			return nil, false, err
		}
		if !specialtyMatches(profile.Specialties, forum.Category) {
			return nil, false, models.ErrSpecialtyMismatch
		}
		membership.Specialty = membershipSpecialty(profile.Specialties)
		if profile.Name != "" {
			membership.UserName = profile.Name
		}
	default:
		return nil, false, &models.ForbiddenError{Required: []models.Role{models.RolePatient, models.RoleResearcher}}
	}

	if err := s.repo.CreateMembership(ctx, membership); err != nil {
		if errors.Is(err, models.ErrConflict) {
			existing, getErr := s.repo.GetMembership(ctx, forumID, user.ID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		s.logger.Error("failed to join forum",
			slog.String("forum_id", forumID),
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, false, err
	}

	s.logger.Info("forum joined",
		slog.String("forum_id", forumID),
		slog.String("user_id", user.ID))
	return membership, true, nil
}

// Leave removes user from the forum; models.ErrNotFound when not a member
func (s *ForumService) Leave(ctx context.Context, user *models.User, forumID string) error {
	return s.repo.DeleteMembership(ctx, forumID, user.ID)
}

func (s *ForumService) Membership(ctx context.Context, user *models.User, forumID string) (*MembershipStatus, error) {
	if _, err := s.repo.GetByID(ctx, forumID); err != nil {
		return nil, err
	}

	m, err := s.repo.GetMembership(ctx, forumID, user.ID)
	switch {
	case err == nil:
		return &MembershipStatus{IsMember: true, Membership: m}, nil
	case errors.Is(err, models.ErrNotFound):
		return &MembershipStatus{}, nil
	default:
		return nil, err
	}
}

func (s *ForumService) Members(ctx context.Context, forumID string) ([]*models.ForumMembership, error) {
	if _, err := s.repo.GetByID(ctx, forumID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, forumID, membersLimit)
}

// specialtyMatches compares case-insensitively, accepting containment either way
func specialtyMatches(specialties []string, category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return true
	}
	for _, sp := range specialties {
		sp = strings.ToLower(strings.TrimSpace(sp))
		if sp == "" {
			continue
		}
		if strings.Contains(sp, category) || strings.Contains(category, sp) {
			return true
		}
	}
	return false
}

// membershipSpecialty is the label shown next to a researcher member
func membershipSpecialty(specialties []string) string {
	if len(specialties) > 2 {
		specialties = specialties[:2]
	}
	return strings.Join(specialties, ", ")
}

// displayRole labels a post author; researchers win when both roles are held
func displayRole(user *models.User) string {
	switch {
	case user.HasRole(models.RoleResearcher):
		return string(models.RoleResearcher)
	case user.HasRole(models.RolePatient):
		return string(models.RolePatient)
	default:
		return ""
	}
}
