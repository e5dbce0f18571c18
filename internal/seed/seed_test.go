package seed

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shift-tracker/backend/internal/config"
	"github.com/shift-tracker/backend/internal/repository"
	"github.com/shift-tracker/backend/internal/utils"
)

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "seed.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	cfg.Database.ConnectTimeout = 5
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5
	cfg.Database.MaxOpenConns = 4

	dbpool, err := repository.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { dbpool.Close() })

	repo := repository.NewRepository(cfg, dbpool)
	require.NoError(t, repo.EnsureSchema())
	return repo
}

func TestReadShiftsCSV(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"salary,date,role,program,start_time,end_time",
		"7500,2024-03-01,РЕЖ,РПЛ,1830,21:00",
		",1503,,,,",
		"-50,2024-03-02,РЕЖ,,,",
		"100,3102,,,,",
		"200,сегодня,,,9,",
	}, "\n"))

	shifts, skipped, err := ReadShiftsCSV(in, 7, fixedNow)
	require.NoError(t, err)

	require.Len(t, shifts, 3)
	assert.Equal(t, int64(7), shifts[0].UserID)
	assert.Equal(t, "2024-03-01", shifts[0].Date.String())
	assert.Equal(t, "18:30", *shifts[0].StartTime)
	assert.Equal(t, int64(7500), *shifts[0].Salary)
	assert.Nil(t, shifts[1].Salary)
	assert.Equal(t, "2024-03-15", shifts[1].Date.String())
	assert.Equal(t, "2024-03-10", shifts[2].Date.String())
	assert.Equal(t, "09:00", *shifts[2].StartTime)

	require.Len(t, skipped, 2)
	assert.Equal(t, 4, skipped[0].Line)
	assert.ErrorIs(t, skipped[0].Err, utils.ErrNegativeAmount)
	assert.Equal(t, 5, skipped[1].Line)
	assert.ErrorIs(t, skipped[1].Err, utils.ErrInvalidDate)
}

func TestReadShiftsCSV_BadHeader(t *testing.T) {
	_, _, err := ReadShiftsCSV(strings.NewReader("date,role,notes\n"), 1, fixedNow)
	assert.Error(t, err)

	_, _, err = ReadShiftsCSV(strings.NewReader("date,role\n"), 1, fixedNow)
	assert.ErrorContains(t, err, "program")

	_, _, err = ReadShiftsCSV(strings.NewReader(""), 1, fixedNow)
	assert.Error(t, err)
}

func TestImportCSV(t *testing.T) {
	repo := newTestRepository(t)
	user, err := EnsureChatUser(repo, "100")
	require.NoError(t, err)

	again, err := EnsureChatUser(repo, "100")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	in := strings.NewReader("date,role,program,start_time,end_time,salary\n2024-03-01,РЕЖ,,,,1000\nbad,,,,,\n")
	n, err := ImportCSV(repo, in, user.ID, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shifts, err := repo.GetShiftsByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, "РЕЖ", *shifts[0].Role)
}

func TestSeedRandomShifts(t *testing.T) {
	repo := newTestRepository(t)
	user, err := EnsureChatUser(repo, "200")
	require.NoError(t, err)

	require.NoError(t, SeedRandomShifts(repo, user.ID, 25, config.DefaultPresets(), fixedNow))

	shifts, err := repo.GetShiftsByUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, shifts, 25)
	for _, s := range shifts {
		assert.NoError(t, utils.ValidateShift(s, fixedNow))
	}
}
