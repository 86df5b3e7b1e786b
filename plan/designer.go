package plan

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Designer produces a rendering and written advice for a furnished room
type Designer interface {
	// GenerateVisualization returns an embedded-data image reference
	// ("data:image/png;base64,...").
	GenerateVisualization(ctx context.Context, cfg RoomConfig, items []FurnitureItem) (string, error)
	GenerateAdvice(ctx context.Context, cfg RoomConfig, items []FurnitureItem) ([]string, error)
}

// Visualization is the joined result of one design request
type Visualization struct {
	Image  string   `json:"image"`
	Advice []string `json:"advice"`
}

var fallbackAdvice = []string{
	"Расположите мебель так, чтобы не перекрывать пути перемещения.",
	"Используйте зеркала для визуального расширения пространства.",
	"Добавьте разные сценарии освещения.",
}

// FallbackAdvice returns the generic tips used when advice generation fails
func FallbackAdvice() []string {
	return append([]string(nil), fallbackAdvice...)
}

// Visualize runs image and advice generation concurrently and waits for both.
// A failed advice call is replaced by FallbackAdvice; a failed image call
// fails the whole request with ErrGenerationFailed.
func Visualize(ctx context.Context, d Designer, cfg RoomConfig, items []FurnitureItem) (Visualization, error) {
	if d == nil {
		return Visualization{}, fmt.Errorf("no designer configured: %w", ErrGenerationFailed)
	}
	if err := cfg.Validate(); err != nil {
		return Visualization{}, err
	}
	items = cloneItems(items)

	var out Visualization
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		img, err := d.GenerateVisualization(gctx, cfg, items)
		if err != nil {
			return fmt.Errorf("visualization: %w: %w", ErrGenerationFailed, err)
		}
		out.Image = img
		return nil
	})

	g.Go(func() error {
		advice, err := d.GenerateAdvice(gctx, cfg, items)
		if err != nil {
			logger().Warnw("advice generation failed, using fallback", "err", err)
			advice = FallbackAdvice()
		}
		out.Advice = advice
		return nil
	})

	if err := g.Wait(); err != nil {
		logger().Errorw("visualization failed", "err", err)
		return Visualization{}, err
	}
	return out, nil
}
