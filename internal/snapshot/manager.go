package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"todo-service/internal/domain"
	"todo-service/internal/repository"
	"todo-service/internal/storage"
)

const keyTimeLayout = "20060102T150405.000000000Z"

// Manager periodically exports the todo and user tables to object storage.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	// SnapshotNow writes one snapshot and prunes old ones, returning its location.
	SnapshotNow(ctx context.Context) (string, error)
}

type Config struct {
	Bucket    string
	KeyPrefix string
	// Interval between snapshots; zero disables the background loop.
	Interval time.Duration
	// Retain is how many snapshots to keep; zero keeps all of them.
	Retain int
	Logger *logrus.Logger
}

// Document is the JSON body of a snapshot object.
type Document struct {
	TakenAt int64        `json:"taken_at"`
	Todos   []TodoRecord `json:"todos"`
	Users   []UserRecord `json:"users"`
}

type TodoRecord struct {
	ID        int64  `json:"id"`
	Owner     string `json:"owner,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type UserRecord struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    int64  `json:"created_at"`
}

type manager struct {
	cfg     Config
	todos   repository.TodoRepository
	users   repository.UserRepository
	storage storage.Service
	now     func() time.Time

	// mu keeps snapshots from overlapping and guards seq.
	mu     sync.Mutex
	seq    uint64
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewManager(cfg Config, todos repository.TodoRepository, users repository.UserRepository, store storage.Service) Manager {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &manager{
		cfg:     cfg,
		todos:   todos,
		users:   users,
		storage: store,
		now:     time.Now,
	}
}

func (m *manager) Start(ctx context.Context) error {
	if m.cfg.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if m.cfg.Interval <= 0 {
		m.cfg.Logger.Info("snapshot interval not set, periodic snapshots disabled")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loop(loopCtx)
	}()

	m.cfg.Logger.Infof("snapshot manager started, every %s to s3://%s/%s", m.cfg.Interval, m.cfg.Bucket, m.cfg.KeyPrefix)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("snapshot manager stopped")
}

func (m *manager) loop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			location, err := m.SnapshotNow(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.cfg.Logger.Errorf("snapshot failed: %v", err)
				continue
			}
			m.cfg.Logger.WithField("location", location).Info("snapshot written")
		}
	}
}

func (m *manager) SnapshotNow(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	takenAt := m.now().UTC()
	doc, err := m.collect(ctx, takenAt)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := m.objectKey(takenAt)
	location, err := m.storage.PutObject(ctx, m.cfg.Bucket, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	if err := m.prune(ctx); err != nil {
		m.cfg.Logger.Warnf("prune snapshots: %v", err)
	}
	return location, nil
}

func (m *manager) collect(ctx context.Context, takenAt time.Time) (*Document, error) {
	todos, err := m.todos.List(ctx, repository.AllTodos())
	if err != nil {
		return nil, fmt.Errorf("read todos: %w", err)
	}
	users, err := m.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}

	doc := &Document{
		TakenAt: takenAt.Unix(),
		Todos:   make([]TodoRecord, len(todos)),
		Users:   make([]UserRecord, len(users)),
	}
	for i := range todos {
		doc.Todos[i] = todoToRecord(todos[i])
	}
	for i := range users {
		doc.Users[i] = UserRecord{
			Username:     users[i].Username,
			PasswordHash: users[i].PasswordHash,
			CreatedAt:    users[i].CreatedAt,
		}
	}
	return doc, nil
}

// objectKey names a snapshot so that keys sort in the order they were taken,
// even when the clock does not advance between two snapshots.
func (m *manager) objectKey(takenAt time.Time) string {
	m.seq++
	name := fmt.Sprintf("%s-%06d-%s.json", takenAt.Format(keyTimeLayout), m.seq, uuid.NewString())
	if m.cfg.KeyPrefix == "" {
		return name
	}
	return path.Join(m.cfg.KeyPrefix, name)
}

// prune deletes all but the newest Retain snapshots. Keys sort chronologically.
func (m *manager) prune(ctx context.Context) error {
	if m.cfg.Retain <= 0 {
		return nil
	}

	prefix := ""
	if m.cfg.KeyPrefix != "" {
		prefix = m.cfg.KeyPrefix + "/"
	}
	objects, err := m.storage.ListObjects(ctx, m.cfg.Bucket, prefix)
	if err != nil {
		return err
	}

	var keys []string
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, ".json") {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) <= m.cfg.Retain {
		return nil
	}

	sort.Strings(keys)
	stale := keys[:len(keys)-m.cfg.Retain]
	if err := m.storage.DeleteObjects(ctx, m.cfg.Bucket, stale); err != nil {
		return err
	}
	m.cfg.Logger.WithField("count", len(stale)).Debug("pruned old snapshots")
	return nil
}

func todoToRecord(todo domain.Todo) TodoRecord {
	return TodoRecord{
		ID:        todo.ID,
		Owner:     todo.Owner,
		Title:     todo.Title,
		Completed: todo.Completed,
		CreatedAt: todo.CreatedAt,
		UpdatedAt: todo.UpdatedAt,
	}
}
