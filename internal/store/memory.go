// Package store — in-memory Store implementation.
// Used as a fallback when PostgreSQL is not available (local dev, tests).
// Supports file-based snapshot persistence so data survives restarts.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/JDRQlabs/LLM-Chatbot/pkg/models"
)

// chatbotState pairs a profile with its provider credentials for the
// snapshot file. ChatbotProfile strips credentials from JSON so API
// responses never echo keys; the snapshot carries them separately so
// they survive restarts.
type chatbotState struct {
	Profile     models.ChatbotProfile      `json:"profile"`
	Credentials models.ProviderCredentials `json:"credentials"`
}

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Chatbots      map[string]chatbotState         `json:"chatbots"`      // key: id
	Tools         map[string]*models.ToolRecord   `json:"tools"`         // key: chatbot:name
	Conversations map[string][]models.ChatMessage `json:"conversations"` // key: session_id
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu            sync.RWMutex
	chatbots      map[string]*models.ChatbotProfile // key: id
	tools         map[string]*models.ToolRecord     // key: chatbot:name
	conversations map[string][]models.ChatMessage   // key: session_id

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals background goroutines to stop

	// History TTL — messages older than this are evicted automatically.
	// Set via CHATBOT_HISTORY_TTL env var (Go duration string).
	historyTTL time.Duration
}

// NewMemoryStore creates a new in-memory store.
// If CHATBOT_DATA_DIR is set, data is persisted to a JSON file in that
// directory. Set it to "-" to disable persistence entirely (tests).
func NewMemoryStore() *MemoryStore {
	historyTTL := 30 * 24 * time.Hour
	if ttlStr := os.Getenv("CHATBOT_HISTORY_TTL"); ttlStr != "" {
		if parsed, err := time.ParseDuration(ttlStr); err == nil {
			historyTTL = parsed
		} else {
			log.Warn().Str("value", ttlStr).Msg("Invalid CHATBOT_HISTORY_TTL, using default 720h")
		}
	}

	m := &MemoryStore{
		chatbots:      make(map[string]*models.ChatbotProfile),
		tools:         make(map[string]*models.ToolRecord),
		conversations: make(map[string][]models.ChatMessage),
		saveCh:        make(chan struct{}, 1),
		doneCh:        make(chan struct{}),
		historyTTL:    historyTTL,
	}

	dataDir := os.Getenv("CHATBOT_DATA_DIR")
	if dataDir != "-" {
		if dataDir == "" {
			if home, err := os.UserHomeDir(); err == nil {
				dataDir = filepath.Join(home, ".llm-chatbot")
			}
		}
		if dataDir != "" {
			m.snapshotPath = filepath.Join(dataDir, "data.json")
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
				m.snapshotPath = ""
			}
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	go m.historyEvictionLoop()

	log.Info().
		Str("history_ttl", historyTTL.String()).
		Str("snapshot", m.snapshotPath).
		Msg("Memory store configured")

	return m
}

var _ Store = (*MemoryStore)(nil)

func toolKey(chatbotID, name string) string { return chatbotID + ":" + name }

// ── Chatbots ─────────────────────────────────────────────────

func (m *MemoryStore) ListChatbots(_ context.Context, tenantID string) ([]models.ChatbotProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ChatbotProfile, 0)
	for _, cb := range m.chatbots {
		if tenantID != "" && cb.TenantID != tenantID {
			continue
		}
		out = append(out, *cb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetChatbot(_ context.Context, id string) (*models.ChatbotProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cb, ok := m.chatbots[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "chatbot", Key: id}
	}
	copied := *cb
	return &copied, nil
}

func (m *MemoryStore) CreateChatbot(_ context.Context, chatbot *models.ChatbotProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	chatbot.CreatedAt = now
	chatbot.UpdatedAt = now
	copied := *chatbot
	m.chatbots[chatbot.ID] = &copied
	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateChatbot(_ context.Context, chatbot *models.ChatbotProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.chatbots[chatbot.ID]
	if !ok {
		return &ErrNotFound{Entity: "chatbot", Key: chatbot.ID}
	}
	chatbot.CreatedAt = existing.CreatedAt
	chatbot.UpdatedAt = time.Now().UTC()
	// Updates that omit credentials keep the stored keys.
	if chatbot.Credentials == (models.ProviderCredentials{}) {
		chatbot.Credentials = existing.Credentials
	}
	copied := *chatbot
	m.chatbots[chatbot.ID] = &copied
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteChatbot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chatbots[id]; !ok {
		return &ErrNotFound{Entity: "chatbot", Key: id}
	}
	delete(m.chatbots, id)
	for key, tool := range m.tools {
		if tool.ChatbotID == id {
			delete(m.tools, key)
		}
	}
	m.requestSave()
	return nil
}

// ── Tools ────────────────────────────────────────────────────

func (m *MemoryStore) ListTools(_ context.Context, chatbotID string) ([]models.ToolRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ToolRecord, 0)
	for _, tool := range m.tools {
		if tool.ChatbotID == chatbotID {
			out = append(out, *tool)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetTool(_ context.Context, chatbotID, name string) (*models.ToolRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tool, ok := m.tools[toolKey(chatbotID, name)]
	if !ok {
		return nil, &ErrNotFound{Entity: "tool", Key: name}
	}
	copied := *tool
	return &copied, nil
}

func (m *MemoryStore) CreateTool(_ context.Context, tool *models.ToolRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	tool.CreatedAt = now
	tool.UpdatedAt = now
	copied := *tool
	m.tools[toolKey(tool.ChatbotID, tool.Name)] = &copied
	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateTool(_ context.Context, tool *models.ToolRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := toolKey(tool.ChatbotID, tool.Name)
	existing, ok := m.tools[key]
	if !ok {
		return &ErrNotFound{Entity: "tool", Key: tool.Name}
	}
	tool.CreatedAt = existing.CreatedAt
	tool.UpdatedAt = time.Now().UTC()
	copied := *tool
	m.tools[key] = &copied
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteTool(_ context.Context, chatbotID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := toolKey(chatbotID, name)
	if _, ok := m.tools[key]; !ok {
		return &ErrNotFound{Entity: "tool", Key: name}
	}
	delete(m.tools, key)
	m.requestSave()
	return nil
}

// ── Conversations ────────────────────────────────────────────

func (m *MemoryStore) History(_ context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.conversations[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *MemoryStore) AppendMessages(_ context.Context, sessionID string, msgs []models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for i := range msgs {
		if msgs[i].CreatedAt.IsZero() {
			msgs[i].CreatedAt = now
		}
	}
	m.conversations[sessionID] = append(m.conversations[sessionID], msgs...)
	m.requestSave()
	return nil
}

// ── Lifecycle ────────────────────────────────────────────────

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close stops background goroutines and flushes a final snapshot.
func (m *MemoryStore) Close() error {
	select {
	case <-m.doneCh:
		return nil // already closed
	default:
	}
	close(m.doneCh)
	if m.snapshotPath != "" {
		m.saveSnapshot()
	}
	return nil
}

// ── Snapshot persistence ─────────────────────────────────────

// requestSave schedules a debounced snapshot write. Callers must hold
// no expectation of durability until the save loop fires.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default: // a save is already pending
	}
}

// saveLoop batches snapshot writes so bursts of mutations produce one
// disk write.
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond)
			m.saveSnapshot()
		}
	}
}

func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	chatbots := make(map[string]chatbotState, len(m.chatbots))
	for id, cb := range m.chatbots {
		chatbots[id] = chatbotState{Profile: *cb, Credentials: cb.Credentials}
	}
	snap := snapshot{
		Chatbots:      chatbots,
		Tools:         m.tools,
		Conversations: m.conversations,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		log.Error().Err(err).Msg("Snapshot marshal failed")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Snapshot write failed")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Snapshot rename failed")
	}
}

func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Snapshot load failed")
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Snapshot parse failed, starting empty")
		return
	}
	for id, state := range snap.Chatbots {
		profile := state.Profile
		profile.Credentials = state.Credentials
		m.chatbots[id] = &profile
	}
	if snap.Tools != nil {
		m.tools = snap.Tools
	}
	if snap.Conversations != nil {
		m.conversations = snap.Conversations
	}
	log.Info().
		Int("chatbots", len(m.chatbots)).
		Int("tools", len(m.tools)).
		Int("sessions", len(m.conversations)).
		Msg("Snapshot loaded")
}

// ── History eviction ─────────────────────────────────────────

// historyEvictionLoop drops messages older than the history TTL every
// ten minutes. Sessions left empty are removed entirely.
func (m *MemoryStore) historyEvictionLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.doneCh:
			return
		case <-ticker.C:
			m.evictExpiredHistory()
		}
	}
}

func (m *MemoryStore) evictExpiredHistory() {
	if m.historyTTL <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-m.historyTTL)

	m.mu.Lock()
	evicted := 0
	for sessionID, msgs := range m.conversations {
		kept := msgs[:0]
		for _, msg := range msgs {
			if msg.CreatedAt.After(cutoff) {
				kept = append(kept, msg)
			} else {
				evicted++
			}
		}
		if len(kept) == 0 {
			delete(m.conversations, sessionID)
		} else {
			m.conversations[sessionID] = kept
		}
	}
	m.mu.Unlock()

	if evicted > 0 {
		log.Info().Int("evicted", evicted).Msg("Expired conversation history evicted")
		m.requestSave()
	}
}
