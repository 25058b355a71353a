package echo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/promptdesk/internal/domain"
	"github.com/davidbz/promptdesk/internal/provider/echo"
)

func TestNewProvider(t *testing.T) {
	provider := echo.NewProvider()

	require.NotNil(t, provider)
	require.Equal(t, "echo", provider.Name())
	require.Equal(t, []string{"echo4"}, provider.SupportedModels(context.Background()))
}

func TestComplete_Success(t *testing.T) {
	provider := echo.NewProvider()
	ctx := context.Background()

	req := &domain.CompletionRequest{
		Model:    echo.ModelName,
		Messages: domain.BuildMessages("Hello world"),
	}

	resp, err := provider.Complete(ctx, req)

	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, "echo4", resp.Model)
	require.Equal(t, "echo", resp.Provider)
	require.Equal(t, "Hello world", resp.Content)
	require.Equal(t, int64(2), resp.Usage.CompletionTokens)
	require.Equal(t, resp.Usage.PromptTokens+resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	require.NotEmpty(t, resp.ID)
}

func TestComplete_JSONMode(t *testing.T) {
	provider := echo.NewProvider()

	req := &domain.CompletionRequest{
		Model:    echo.ModelName,
		Messages: domain.BuildMessages("ping"),
		JSONMode: true,
	}

	resp, err := provider.Complete(context.Background(), req)

	require.NoError(t, err)
	require.JSONEq(t, `{"echo": "ping"}`, resp.Content)
}

func TestComplete_Errors(t *testing.T) {
	provider := echo.NewProvider()
	ctx := context.Background()

	t.Run("nil request", func(t *testing.T) {
		resp, err := provider.Complete(ctx, nil)

		require.Error(t, err)
		require.Nil(t, resp)
		require.Contains(t, err.Error(), "request cannot be nil")
	})

	t.Run("unsupported model", func(t *testing.T) {
		resp, err := provider.Complete(ctx, &domain.CompletionRequest{
			Model:    "gpt-4",
			Messages: domain.BuildMessages("Hello"),
		})

		require.Error(t, err)
		require.Nil(t, resp)
		require.Contains(t, err.Error(), "not supported")
	})

	t.Run("failure prompt", func(t *testing.T) {
		resp, err := provider.Complete(ctx, &domain.CompletionRequest{
			Model:    echo.ModelName,
			Messages: domain.BuildMessages(echo.FailurePrompt),
		})

		require.Error(t, err)
		require.Nil(t, resp)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		resp, err := provider.Complete(cancelled, &domain.CompletionRequest{
			Model:    echo.ModelName,
			Messages: domain.BuildMessages("Hello"),
		})

		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, resp)
	})
}

func TestIsModelSupported(t *testing.T) {
	provider := echo.NewProvider()
	ctx := context.Background()

	require.True(t, provider.IsModelSupported(ctx, "echo4"))
	require.False(t, provider.IsModelSupported(ctx, "gpt-4o"))
}
