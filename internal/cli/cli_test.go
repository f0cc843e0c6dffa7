package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hotelbooking/internal/database"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	dir        string
	configPath string
	dbPath     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "hotel.db")
	configPath := filepath.Join(dir, "config.yaml")

	cfg := fmt.Sprintf(`
database:
  path: %q
auth:
  jwt_secret: "cli-test-secret-0123456789"
  bcrypt_cost: 4
backup:
  storage_path: %q
  retention_days: 7
exports:
  path: %q
logging:
  level: error
`, dbPath, filepath.Join(dir, "backups"), filepath.Join(dir, "exports"))
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))

	return &cliEnv{dir: dir, configPath: configPath, dbPath: dbPath}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) openDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(e.dbPath, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

const roomsYAML = `
rooms:
  - number: "101"
    name: Standard double
    type: double
    price: 120
    capacity: 2
    amenities: [wifi, tv]
  - number: "201"
    name: Family suite
    type: suite
    price: 260
    capacity: 4
`

func TestSeed(t *testing.T) {
	env := newCLIEnv(t)
	file := filepath.Join(env.dir, "rooms.yaml")
	require.NoError(t, os.WriteFile(file, []byte(roomsYAML), 0o600))

	out, err := env.run(t, "seed", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "2 created, 0 updated")

	out, err = env.run(t, "seed", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "0 created, 2 updated")

	rooms, err := env.openDB(t).ListRooms(context.Background(), models.RoomFilter{})
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestSeed_BadFile(t *testing.T) {
	env := newCLIEnv(t)
	file := filepath.Join(env.dir, "rooms.yaml")
	require.NoError(t, os.WriteFile(file, []byte("rooms:\n  - number: \"1\"\n    colour: red\n"), 0o600))

	_, err := env.run(t, "seed", "--file", file)
	assert.Error(t, err)

	_, err = env.run(t, "seed", "--file", filepath.Join(env.dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCreateAdmin(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "create-admin", "--email", "Boss@Hotel.test", "--password", "correct-horse")
	require.NoError(t, err)
	assert.Contains(t, out, "boss@hotel.test created")

	out, err = env.run(t, "create-admin", "--email", "boss@hotel.test", "--password", "another-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "promoted")

	user, err := env.openDB(t).GetUserByEmail(context.Background(), "boss@hotel.test")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestCreateAdmin_RequiresPassword(t *testing.T) {
	t.Setenv("HOTEL_ADMIN_PASSWORD", "")
	env := newCLIEnv(t)

	_, err := env.run(t, "create-admin", "--email", "boss@hotel.test")
	assert.ErrorContains(t, err, "password")

	_, err = env.run(t, "create-admin", "--password", "correct-horse")
	assert.Error(t, err)
}

func TestBackup(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "backup", "--cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "Backup written to")
	assert.Contains(t, out, "Removed 0 old backups")

	files, err := os.ReadDir(filepath.Join(env.dir, "backups"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(files[0].Name(), "backup_"))
}

func TestExport(t *testing.T) {
	env := newCLIEnv(t)
	db := env.openDB(t)
	ctx := context.Background()

	room := &models.Room{Number: "101", Name: "Double", Type: "double", Price: 100, Capacity: 2}
	require.NoError(t, db.CreateRoom(ctx, room))
	user := &models.User{Email: "guest@example.com", Name: "Guest", PasswordHash: "x"}
	require.NoError(t, db.CreateUser(ctx, user))
	b := &models.Booking{
		UserID:        user.ID,
		RoomID:        room.ID,
		CheckIn:       time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2030, 3, 3, 0, 0, 0, 0, time.UTC),
		Guests:        2,
		TotalAmount:   200,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
	}
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	outDir := filepath.Join(env.dir, "reports")
	out, err := env.run(t, "export", "--from", "2030-03-01", "--to", "2030-03-31", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 bookings")

	_, err = os.Stat(filepath.Join(outDir, "bookings_2030-03-01_to_2030-03-31.xlsx"))
	assert.NoError(t, err)

	_, err = env.run(t, "export", "--from", "March")
	assert.Error(t, err)
}

func TestSyncCommands(t *testing.T) {
	env := newCLIEnv(t)
	db := env.openDB(t)
	ctx := context.Background()

	out, err := env.run(t, "sync", "failed")
	require.NoError(t, err)
	assert.Contains(t, out, "No failed sync tasks")

	task := &models.SyncTask{TaskType: models.SyncTaskUpsert, BookingID: 7, Payload: "{}"}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, "quota exceeded", nil))

	out, err = env.run(t, "sync", "failed")
	require.NoError(t, err)
	assert.Contains(t, out, "quota exceeded")

	out, err = env.run(t, "sync", "requeue")
	require.NoError(t, err)
	assert.Contains(t, out, "Requeued 1 tasks")

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestMissingConfig(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "backup"})
	assert.Error(t, cmd.Execute())
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/hotel/config.yaml")
	assert.Equal(t, "/etc/hotel/config.yaml", defaultConfigPath())

	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "configs/config.yaml", defaultConfigPath())
}
