package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/deep3/social/models"
	"github.com/deep3/social/moderation"
	"github.com/deep3/social/utils"
)

// PrepareNFTInput describes an achievement to turn into a mintable draft.
type PrepareNFTInput struct {
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	Type        models.NFTType `json:"type" binding:"required"`
	Metadata    map[string]any `json:"metadata"`
}

// PrepareNFT stores an unminted draft owned by the caller.
func (s *Store) PrepareNFT(ctx context.Context, sess *models.Session, in PrepareNFTInput) (*models.NFT, error) {
	if err := moderation.CanParticipate(sess); err != nil {
		return nil, err
	}
	now := s.clock()
	nft := &models.NFT{
		OwnerID:     sess.UserID,
		Title:       utils.PlainText(in.Title),
		Description: utils.PlainText(in.Description),
		Type:        models.NFTType(strings.ToLower(strings.TrimSpace(string(in.Type)))),
		Metadata:    datatypes.JSONMap(in.Metadata),
		MintingFee:  models.DefaultMintingFee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if nft.Metadata == nil {
		nft.Metadata = datatypes.JSONMap{}
	}
	if err := models.Validate(nft); err != nil {
		return nil, err
	}

	db, cancel := s.begin(ctx)
	defer cancel()
	if err := db.Create(nft).Error; err != nil {
		return nil, wrap("prepare nft", err)
	}
	return nft, nil
}

// ListNFTs returns the caller's drafts, newest first.
func (s *Store) ListNFTs(ctx context.Context, sess *models.Session) ([]models.NFT, error) {
	if sess == nil || sess.UserID == "" {
		return nil, ErrUnauthenticated
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	nfts := []models.NFT{}
	if err := db.Where("owner_id = ?", sess.UserID).Order("created_at DESC").Order("id DESC").Find(&nfts).Error; err != nil {
		return nil, wrap("list nfts", err)
	}
	return nfts, nil
}

// MintNFT validates ownership and then reports that minting is not available.
func (s *Store) MintNFT(ctx context.Context, sess *models.Session, id string) (*models.NFT, error) {
	if err := moderation.CanParticipate(sess); err != nil {
		return nil, err
	}
	db, cancel := s.begin(ctx)
	defer cancel()

	var nft models.NFT
	if err := db.Where("id = ?", id).First(&nft).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("nft", id)
		}
		return nil, wrap("mint nft", err)
	}
	if nft.OwnerID != sess.UserID {
		return nil, fmt.Errorf("%w: nft belongs to another user", ErrForbidden)
	}
	return &nft, ErrMintingUnavailable
}
