package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NFTType is the achievement kind an NFT draft commemorates.
type NFTType string

const (
	NFTTestScore   NFTType = "test-score"
	NFTCertificate NFTType = "certificate"
	NFTMilestone   NFTType = "milestone"
)

// Fee schedule in ETH. MintingFee on a draft covers base plus platform; gas is quoted separately.
const (
	NFTBaseFee         = 0.005
	NFTPlatformFee     = 0.002
	NFTEstimatedGasFee = 0.003
	DefaultMintingFee  = NFTBaseFee + NFTPlatformFee
)

// NFT is a prepared achievement token. Minting is not wired, so IsMinted stays false.
type NFT struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     string            `gorm:"size:36;index;not null" json:"owner_id" validate:"required"`
	Title       string            `gorm:"size:200;not null" json:"title" validate:"required,max=200"`
	Description string            `gorm:"type:text" json:"description" validate:"max=2000"`
	Type        NFTType           `gorm:"size:16;not null" json:"type" validate:"required,oneof=test-score certificate milestone"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	IsMinted    bool              `gorm:"not null;default:false" json:"is_minted"`
	MintingFee  float64           `gorm:"not null" json:"minting_fee" validate:"gte=0"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// FeeQuote is the cost breakdown shown before minting.
type FeeQuote struct {
	Base         float64 `json:"base"`
	Platform     float64 `json:"platform"`
	EstimatedGas float64 `json:"estimated_gas"`
	Total        float64 `json:"total"`
}

// Quote returns the fee breakdown for this draft.
func (n *NFT) Quote() FeeQuote {
	return FeeQuote{
		Base:         NFTBaseFee,
		Platform:     n.MintingFee - NFTBaseFee,
		EstimatedGas: NFTEstimatedGasFee,
		Total:        n.MintingFee + NFTEstimatedGasFee,
	}
}

// BeforeCreate assigns an id and the default fee.
func (n *NFT) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.MintingFee == 0 {
		n.MintingFee = DefaultMintingFee
	}
	return nil
}
