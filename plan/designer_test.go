package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDesigner implements Designer using testify/mock
type MockDesigner struct {
	mock.Mock
}

func (m *MockDesigner) GenerateVisualization(ctx context.Context, cfg RoomConfig, items []FurnitureItem) (string, error) {
	args := m.Called(ctx, cfg, items)
	return args.String(0), args.Error(1)
}

func (m *MockDesigner) GenerateAdvice(ctx context.Context, cfg RoomConfig, items []FurnitureItem) ([]string, error) {
	args := m.Called(ctx, cfg, items)
	advice, _ := args.Get(0).([]string)
	return advice, args.Error(1)
}

func TestVisualize_Success(t *testing.T) {
	cfg := DefaultRoomConfig()
	items := []FurnitureItem{chairAt("a", 100, 100)}

	d := new(MockDesigner)
	d.On("GenerateVisualization", mock.Anything, cfg, items).Return("data:image/png;base64,AAAA", nil)
	d.On("GenerateAdvice", mock.Anything, cfg, items).Return([]string{"one", "two", "three"}, nil)

	out, err := Visualize(context.Background(), d, cfg, items)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", out.Image)
	assert.Equal(t, []string{"one", "two", "three"}, out.Advice)
	d.AssertExpectations(t)
}

func TestVisualize_AdviceFailureUsesFallback(t *testing.T) {
	cfg := DefaultRoomConfig()

	d := new(MockDesigner)
	d.On("GenerateVisualization", mock.Anything, cfg, mock.Anything).Return("data:image/png;base64,QQ==", nil)
	d.On("GenerateAdvice", mock.Anything, cfg, mock.Anything).Return(nil, errors.New("quota exceeded"))

	out, err := Visualize(context.Background(), d, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,QQ==", out.Image)
	assert.Equal(t, []string{
		"Расположите мебель так, чтобы не перекрывать пути перемещения.",
		"Используйте зеркала для визуального расширения пространства.",
		"Добавьте разные сценарии освещения.",
	}, out.Advice)
}

func TestVisualize_ImageFailureFailsRequest(t *testing.T) {
	cfg := DefaultRoomConfig()

	d := new(MockDesigner)
	d.On("GenerateVisualization", mock.Anything, cfg, mock.Anything).Return("", errors.New("no image"))
	d.On("GenerateAdvice", mock.Anything, cfg, mock.Anything).Return([]string{"tip"}, nil).Maybe()

	_, err := Visualize(context.Background(), d, cfg, nil)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestVisualize_Guards(t *testing.T) {
	_, err := Visualize(context.Background(), nil, DefaultRoomConfig(), nil)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	d := new(MockDesigner)
	_, err = Visualize(context.Background(), d, RoomConfig{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	d.AssertNotCalled(t, "GenerateVisualization", mock.Anything, mock.Anything, mock.Anything)
}

func TestFallbackAdvice_IsCopy(t *testing.T) {
	a := FallbackAdvice()
	a[0] = "changed"
	assert.NotEqual(t, "changed", FallbackAdvice()[0])
	assert.Len(t, FallbackAdvice(), 3)
}
