package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

// NFTController prepares achievement NFT drafts. Minting is not wired to a chain.
type NFTController struct {
	store *store.Store
}

// NewNFTController creates a new NFTController instance.
func NewNFTController(s *store.Store) *NFTController {
	return &NFTController{store: s}
}

// Prepare stores a draft and returns its fee quote.
func (n *NFTController) Prepare(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	var req store.PrepareNFTInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	nft, err := n.store.PrepareNFT(ctx.Request.Context(), sess, req)
	if err != nil {
		respondError(ctx, err, 50060, "failed to prepare nft")
		return
	}
	utils.Success(ctx, gin.H{"nft": nft, "quote": nft.Quote()})
}

// List returns the caller's drafts.
func (n *NFTController) List(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	nfts, err := n.store.ListNFTs(ctx.Request.Context(), sess)
	if err != nil {
		respondError(ctx, err, 50061, "failed to list nfts")
		return
	}
	utils.Success(ctx, gin.H{"items": nfts})
}

// Mint always answers 501 for drafts the caller owns.
func (n *NFTController) Mint(ctx *gin.Context) {
	sess := requireSession(ctx)
	if sess == nil {
		return
	}
	nft, err := n.store.MintNFT(ctx.Request.Context(), sess, ctx.Param("id"))
	if errors.Is(err, store.ErrMintingUnavailable) {
		utils.Respond(ctx, http.StatusNotImplemented, 50101, err.Error(), gin.H{"quote": nft.Quote()})
		return
	}
	if err != nil {
		respondError(ctx, err, 50062, "failed to mint nft")
		return
	}
	utils.Success(ctx, gin.H{"nft": nft})
}
