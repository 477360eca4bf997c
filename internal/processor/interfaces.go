package processor

import "context"

// TextEmbedder is the embedding gateway contract: vectors come back in input
// order, and Dimensions reports the expected vector length (0 when the
// provider decides). The processor validates every returned vector and treats
// an unusable one as absent rather than substituting zeros.
type TextEmbedder interface {
	EmbedStrings(ctx context.Context, texts []string) ([][]float64, error)
	Dimensions() int
}
