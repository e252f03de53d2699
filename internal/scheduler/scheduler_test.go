package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/savium/savium/internal/domain"
	"github.com/savium/savium/internal/vault"
	"github.com/savium/savium/pkg/retrier"
)

type stubOrch struct {
	calls    int
	failures int
	gotTok   domain.OperatorToken
	gotVault string
}

func (s *stubOrch) HandleOperatorActions(_ context.Context, tok domain.OperatorToken, vaultID string) (vault.Report, error) {
	s.calls++
	s.gotTok = tok
	s.gotVault = vaultID
	if s.calls <= s.failures {
		return vault.Report{}, errors.New("strategy unavailable")
	}
	return vault.Report{}, nil
}

func fastRetrier() *retrier.Retrier {
	return retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(time.Millisecond))
}

func TestRunPassesOperatorToken(t *testing.T) {
	tok := domain.NewOperatorToken()
	orch := &stubOrch{}
	s := New(nil, orch, tok)
	s.retr = fastRetrier()

	s.run("main")

	require.Equal(t, 1, orch.calls)
	require.True(t, orch.gotTok.Matches(tok))
	require.Equal(t, "main", orch.gotVault)
}

func TestRunRetriesTransientFailure(t *testing.T) {
	orch := &stubOrch{failures: 1}
	s := New(nil, orch, domain.NewOperatorToken())
	s.retr = fastRetrier()

	s.run("main")

	require.Equal(t, 2, orch.calls)
}

func TestRunSurvivesPermanentFailure(t *testing.T) {
	orch := &stubOrch{failures: 100}
	s := New(nil, orch, domain.NewOperatorToken())
	s.retr = fastRetrier()

	// the failure is logged and left for the next tick
	s.run("main")

	require.Equal(t, 3, orch.calls)
}

func TestRegisterValidatesSpec(t *testing.T) {
	s := New(nil, &stubOrch{}, domain.NewOperatorToken())

	require.Error(t, s.Register("main", "not a cron spec"))
	require.NoError(t, s.Register("main", "*/30 * * * * *"))
}

func TestStartStop(t *testing.T) {
	s := New(nil, &stubOrch{}, domain.NewOperatorToken())
	require.NoError(t, s.Register("main", "0 0 * * * *"))

	s.Start()
	s.Stop()
}
