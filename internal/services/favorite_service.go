package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/curalink/curalink/internal/models"
)

// FavoriteRepository defines favorite storage
type FavoriteRepository interface {
	Create(ctx context.Context, f *models.Favorite) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Favorite, error)
	Delete(ctx context.Context, id, userID string) error
}

// FavoriteInput identifies the item to favorite. Trial or Publication carry
// a snapshot of an upstream record, stored before the favorite is written.
type FavoriteInput struct {
	ItemType    string
	ItemID      string
	Trial       *models.ClinicalTrial
	Publication *models.Publication
}

// FavoriteEntry is a favorite with its resolved item
type FavoriteEntry struct {
	FavoriteID string `json:"favorite_id"`
	ItemType   string `json:"item_type"`
	Item       any    `json:"item"`
}

const favoritesLimit = 200

// FavoriteService manages per-user favorites
type FavoriteService struct {
	favorites    FavoriteRepository
	trials       TrialRepository
	publications PublicationRepository
	profiles     ProfileRepository
	logger       *slog.Logger
}

func NewFavoriteService(favorites FavoriteRepository, trials TrialRepository, publications PublicationRepository, profiles ProfileRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{
		favorites:    favorites,
		trials:       trials,
		publications: publications,
		profiles:     profiles,
		logger:       logger,
	}
}

// Add stores a favorite. Adding an item twice, concurrently or not, leaves
// one row and returns models.ErrAlreadyFavorited. The favorite always
// references a stored item; an id that resolves to nothing is
// models.ErrNotFound.
func (s *FavoriteService) Add(ctx context.Context, userID string, in FavoriteInput) (*models.Favorite, error) {
	if !models.IsValidItemType(in.ItemType) {
		return nil, models.ErrUnsupportedItemType
	}

	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return nil, models.ErrBadRequest
	}

	itemID, err := s.resolveItemID(ctx, in, itemID)
	if err != nil {
		return nil, err
	}

	fav := &models.Favorite{
		UserID:   userID,
		ItemType: in.ItemType,
		ItemID:   itemID,
	}
	if err := s.favorites.Create(ctx, fav); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrAlreadyFavorited
		}
		s.logger.Error("failed to add favorite",
			slog.String("user_id", userID),
			slog.String("item_type", in.ItemType),
			slog.Any("error", err))
		return nil, err
	}

	return fav, nil
}

// resolveItemID returns the local id the favorite should reference. A
// snapshot is upserted by external id; otherwise itemID is looked up as a
// local id and then, for trials and publications, as an external id.
func (s *FavoriteService) resolveItemID(ctx context.Context, in FavoriteInput, itemID string) (string, error) {
	switch in.ItemType {
	case models.ItemTypeTrial:
		if in.Trial != nil {
			return s.storeTrialSnapshot(ctx, *in.Trial, itemID)
		}
		t, err := s.trials.GetByID(ctx, itemID)
		if errors.Is(err, models.ErrNotFound) {
			t, err = s.trials.GetByExternalID(ctx, itemID)
		}
		if err != nil {
			return "", err
		}
		return t.ID, nil

	case models.ItemTypePublication:
		if in.Publication != nil {
			return s.storePublicationSnapshot(ctx, *in.Publication, itemID)
		}
		p, err := s.publications.GetByID(ctx, itemID)
		if errors.Is(err, models.ErrNotFound) {
			p, err = s.publications.GetByExternalID(ctx, itemID)
		}
		if err != nil {
			return "", err
		}
		return p.ID, nil

	case models.ItemTypeExpert:
		if _, err := s.profiles.GetExpertByID(ctx, itemID); err != nil {
			return "", err
		}
		return itemID, nil

	case models.ItemTypeCollaborator:
		if _, err := s.profiles.GetResearcherProfile(ctx, itemID); err != nil {
			return "", err
		}
		return itemID, nil
	}

	return "", models.ErrUnsupportedItemType
}

func (s *FavoriteService) storeTrialSnapshot(ctx context.Context, snapshot models.ClinicalTrial, itemID string) (string, error) {
	if snapshot.ExternalID == nil {
		snapshot.ExternalID = &itemID
	}
	if snapshot.Source == "" || snapshot.Source == models.SourceLocal {
		snapshot.Source = models.SourceClinicalTrials
	}
	stored, err := s.trials.UpsertExternal(ctx, &snapshot)
	if err != nil {
		s.logger.Error("failed to store trial snapshot", slog.Any("error", err))
		return "", err
	}
	return stored.ID, nil
}

func (s *FavoriteService) storePublicationSnapshot(ctx context.Context, snapshot models.Publication, itemID string) (string, error) {
	if snapshot.ExternalID == nil {
		snapshot.ExternalID = &itemID
	}
	if snapshot.Source == "" || snapshot.Source == models.SourceLocal {
		snapshot.Source = models.SourcePubMed
	}
	stored, err := s.publications.UpsertExternal(ctx, &snapshot)
	if err != nil {
		s.logger.Error("failed to store publication snapshot", slog.Any("error", err))
		return "", err
	}
	return stored.ID, nil
}

// List returns the user's favorites with their items. Favorites whose item
// no longer exists are skipped.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]*FavoriteEntry, error) {
	favorites, err := s.favorites.ListByUser(ctx, userID, favoritesLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]*FavoriteEntry, 0, len(favorites))
	for _, fav := range favorites {
		item, err := s.resolve(ctx, fav)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, &FavoriteEntry{
			FavoriteID: fav.ID,
			ItemType:   fav.ItemType,
			Item:       item,
		})
	}
	return entries, nil
}

func (s *FavoriteService) resolve(ctx context.Context, fav *models.Favorite) (any, error) {
	switch fav.ItemType {
	case models.ItemTypeTrial:
		return s.trials.GetByID(ctx, fav.ItemID)
	case models.ItemTypePublication:
		return s.publications.GetByID(ctx, fav.ItemID)
	case models.ItemTypeExpert:
		return s.profiles.GetExpertByID(ctx, fav.ItemID)
	case models.ItemTypeCollaborator:
		return s.profiles.GetResearcherProfile(ctx, fav.ItemID)
	default:
		return nil, models.ErrNotFound
	}
}

// Remove deletes one of the user's favorites
func (s *FavoriteService) Remove(ctx context.Context, userID, favoriteID string) error {
	return s.favorites.Delete(ctx, favoriteID, userID)
}
