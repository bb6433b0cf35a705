package imagegen

import (
	"context"
	"log"
	"math/rand/v2"
	"time"

	"github.com/inkmuse/inkmuse-api/internal/models"
	"golang.org/x/sync/errgroup"
)

// maxSeed is the top of the provider's valid seed range.
const maxSeed = 4294967294

// GeneratePair runs the color and stencil calls concurrently with one shared
// seed and identical model, so the two images differ only in the stencil
// prompt rewrite. Seed 0 means "draw one": the pair must be reproducible, so
// the provider-chooses sentinel is never forwarded. Both legs must succeed;
// the first error cancels the sibling and no partial pair is ever returned.
func (c *Client) GeneratePair(ctx context.Context, positivePrompt, negativePrompt, model string, seed int64) (*models.ImagePair, error) {
	if seed == 0 {
		// Uniform over [1, maxSeed] so a drawn seed never collides with the
		// provider-chooses sentinel.
		seed = 1 + rand.Int64N(maxSeed)
	}

	startTime := time.Now()
	log.Printf("🎲 PAIR GENERATION: model=%s seed=%d", model, seed)

	base := Request{
		Prompt:         positivePrompt,
		NegativePrompt: negativePrompt,
		Model:          model,
		Seed:           seed,
		Mode:           ModeTextToImage,
	}

	var color, stencil *models.GeneratedImage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := c.Generate(gctx, base)
		if err != nil {
			return err
		}
		color = img
		return nil
	})
	g.Go(func() error {
		img, err := c.GenerateStencil(gctx, base)
		if err != nil {
			return err
		}
		stencil = img
		return nil
	})

	if err := g.Wait(); err != nil {
		// The sibling's result, if any, is discarded with the group.
		return nil, err
	}

	log.Printf("✅ PAIR GENERATED: seed=%d in %v", seed, time.Since(startTime))

	return &models.ImagePair{
		Color:   color,
		Stencil: stencil,
		Seed:    seed,
	}, nil
}
