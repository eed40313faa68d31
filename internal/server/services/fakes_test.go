package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/logging"
	"github.com/dmitrijs2005/filekeeper/internal/server/events"
	"github.com/dmitrijs2005/filekeeper/internal/server/models"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/cursors"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/folders"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/sharetokens"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/filekeeper/internal/server/sessions"
)

// memDB is an in-memory stand-in for the PostgreSQL schema, honoring its
// unique constraints.
type memDB struct {
	mu sync.Mutex

	users   map[int64]*models.User
	folders map[int64]*models.Folder
	files   map[int64]*models.File
	tokens  map[string]*models.ShareToken
	cursors map[int64]int64

	nextFolder int64
	nextFile   int64

	failFilesInsert error
	failCursorGet   error
}

func newMemDB() *memDB {
	return &memDB{
		users:   map[int64]*models.User{},
		folders: map[int64]*models.Folder{},
		files:   map[int64]*models.File{},
		tokens:  map[string]*models.ShareToken{},
		cursors: map[int64]int64{},
	}
}

type fakeRepoManager struct{ m *memDB }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return &memUsers{f.m} }
func (f *fakeRepoManager) Folders(dbx.DBTX) folders.Repository         { return &memFolders{f.m} }
func (f *fakeRepoManager) Files(dbx.DBTX) files.Repository             { return &memFiles{f.m} }
func (f *fakeRepoManager) ShareTokens(dbx.DBTX) sharetokens.Repository { return &memTokens{f.m} }
func (f *fakeRepoManager) Cursors(dbx.DBTX) cursors.Repository         { return &memCursors{f.m} }

type memUsers struct{ m *memDB }

func (r *memUsers) Upsert(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if existing, ok := r.m.users[u.TelegramID]; ok {
		existing.UserName, existing.FirstName, existing.LastName = u.UserName, u.FirstName, u.LastName
		cp := *existing
		return &cp, nil
	}
	cp := *u
	cp.Approved = false
	cp.CreatedAt = time.Now()
	r.m.users[u.TelegramID] = &cp
	out := cp
	return &out, nil
}

func (r *memUsers) Get(_ context.Context, id int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) SetApproved(_ context.Context, id int64, approved bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Approved = approved
	return nil
}

type memFolders struct{ m *memDB }

func (r *memFolders) GetOrCreate(_ context.Context, ownerID int64, name string) (*models.Folder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, f := range r.m.folders {
		if f.OwnerID == ownerID && f.Name == name {
			cp := *f
			return &cp, nil
		}
	}
	r.m.nextFolder++
	f := &models.Folder{ID: r.m.nextFolder, OwnerID: ownerID, Name: name, CreatedAt: time.Now()}
	r.m.folders[f.ID] = f
	cp := *f
	return &cp, nil
}

func (r *memFolders) GetByID(_ context.Context, id int64) (*models.Folder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.folders[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memFolders) GetByOwnerAndName(_ context.Context, ownerID int64, name string) (*models.Folder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, f := range r.m.folders {
		if f.OwnerID == ownerID && f.Name == name {
			cp := *f
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memFolders) SetPassword(_ context.Context, id int64, hash *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.folders[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.PasswordHash = hash
	return nil
}

func (r *memFolders) ListByOwner(_ context.Context, ownerID int64, limit int) ([]*models.Folder, error) {
	return r.filter(ownerID, "", limit), nil
}

func (r *memFolders) Search(_ context.Context, ownerID int64, substring string, limit int) ([]*models.Folder, error) {
	return r.filter(ownerID, strings.ToLower(substring), limit), nil
}

func (r *memFolders) filter(ownerID int64, sub string, limit int) []*models.Folder {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Folder
	for _, f := range r.m.folders {
		if f.OwnerID == ownerID && strings.Contains(strings.ToLower(f.Name), sub) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

type memFiles struct{ m *memDB }

func (r *memFiles) Insert(_ context.Context, file *models.File) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failFilesInsert != nil {
		return false, r.m.failFilesInsert
	}
	if file.FolderID != nil {
		f, ok := r.m.folders[*file.FolderID]
		if !ok || f.OwnerID != file.OwnerID {
			return false, errors.New("foreign key violation")
		}
	}
	for _, existing := range r.m.files {
		if existing.OwnerID == file.OwnerID && existing.FileUniqueID == file.FileUniqueID {
			*file = *existing
			return false, nil
		}
	}
	r.m.nextFile++
	file.ID = r.m.nextFile
	file.CreatedAt = time.Now()
	cp := *file
	r.m.files[file.ID] = &cp
	return true, nil
}

func (r *memFiles) GetByID(_ context.Context, id int64) (*models.File, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memFiles) sorted(keep func(*models.File) bool, desc bool) []*models.File {
	var out []*models.File
	for _, f := range r.m.files {
		if keep(f) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memFiles) ListByFolder(_ context.Context, folderID int64, limit int) ([]*models.File, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := r.sorted(func(f *models.File) bool { return f.FolderID != nil && *f.FolderID == folderID }, false)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memFiles) ListByOwner(_ context.Context, ownerID int64, limit int) ([]*models.File, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := r.sorted(func(f *models.File) bool { return f.OwnerID == ownerID }, true)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memFiles) LastByOwner(ctx context.Context, ownerID int64) (*models.File, error) {
	out, _ := r.ListByOwner(ctx, ownerID, 1)
	if len(out) == 0 {
		return nil, common.ErrorNotFound
	}
	return out[0], nil
}

func (r *memFiles) CountByFolder(_ context.Context, folderID int64) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, f := range r.m.files {
		if f.FolderID != nil && *f.FolderID == folderID {
			n++
		}
	}
	return n, nil
}

func (r *memFiles) SetStorageKey(_ context.Context, id int64, key string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	f, ok := r.m.files[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.StorageKey = &key
	return nil
}

type memTokens struct{ m *memDB }

func (r *memTokens) GetOrCreate(_ context.Context, ownerID, folderID int64, candidate string) (*models.ShareToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.tokens {
		if t.OwnerID == ownerID && t.FolderID == folderID {
			cp := *t
			return &cp, nil
		}
	}
	if _, taken := r.m.tokens[candidate]; taken {
		return nil, errors.New("token collision")
	}
	t := &models.ShareToken{OwnerID: ownerID, FolderID: folderID, Token: candidate, CreatedAt: time.Now()}
	r.m.tokens[candidate] = t
	cp := *t
	return &cp, nil
}

func (r *memTokens) Resolve(_ context.Context, token string) (*models.ShareToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

type memCursors struct{ m *memDB }

func (r *memCursors) Set(_ context.Context, ownerID, folderID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.cursors[ownerID] = folderID
	return nil
}

func (r *memCursors) Get(_ context.Context, ownerID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failCursorGet != nil {
		return 0, r.m.failCursorGet
	}
	id, ok := r.m.cursors[ownerID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return id, nil
}

// fakeChannel records every outbound call.
type sentText struct {
	chatID int64
	text   string
}

type sentItems struct {
	chatID int64
	group  bool
	items  []Outgoing
}

type fakeChannel struct {
	mu    sync.Mutex
	texts []sentText
	sends []sentItems

	failTextTo   map[int64]bool
	failGroupAt  map[int]bool // by group call index, 0-based
	failSingleID map[string]int
	groupCalls   int
	failAllGroup bool
	bytes        map[string][]byte
	receiveErr   error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		failTextTo:   map[int64]bool{},
		failGroupAt:  map[int]bool{},
		failSingleID: map[string]int{},
		bytes:        map[string][]byte{},
	}
}

func (c *fakeChannel) SendText(_ context.Context, chatID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failTextTo[chatID] {
		return fmt.Errorf("chat %d unreachable", chatID)
	}
	c.texts = append(c.texts, sentText{chatID: chatID, text: text})
	return nil
}

func (c *fakeChannel) SendSingle(_ context.Context, chatID int64, item Outgoing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item.Bytes == nil && c.failSingleID[item.FileID] > 0 {
		c.failSingleID[item.FileID]--
		return fmt.Errorf("bad file reference %s", item.FileID)
	}
	c.sends = append(c.sends, sentItems{chatID: chatID, items: []Outgoing{item}})
	return nil
}

func (c *fakeChannel) SendGroup(_ context.Context, chatID int64, items []Outgoing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.groupCalls
	c.groupCalls++
	if c.failAllGroup || c.failGroupAt[idx] {
		return errors.New("group rejected")
	}
	cp := append([]Outgoing(nil), items...)
	c.sends = append(c.sends, sentItems{chatID: chatID, group: true, items: cp})
	return nil
}

func (c *fakeChannel) ReceiveBytes(_ context.Context, fileID string) ([]byte, error) {
	if c.receiveErr != nil {
		return nil, c.receiveErr
	}
	b, ok := c.bytes[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return b, nil
}

func (c *fakeChannel) BotUserName() string { return "keeper_bot" }

// deliveredNames flattens every successful send into file names, in order.
func (c *fakeChannel) deliveredNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, s := range c.sends {
		for _, it := range s.items {
			out = append(out, it.FileName)
		}
	}
	return out
}

func (c *fakeChannel) textsTo(chatID int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, t := range c.texts {
		if t.chatID == chatID {
			out = append(out, t.text)
		}
	}
	return out
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	n       int
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{objects: map[string][]byte{}} }

func (b *fakeBlobs) Put(_ context.Context, ownerID int64, data []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	b.n++
	key := fmt.Sprintf("users/%d/blob-%d", ownerID, b.n)
	b.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (b *fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr != nil {
		return nil, b.getErr
	}
	d, ok := b.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return d, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

const superOwnerID int64 = 1000

type testEnv struct {
	mem   *memDB
	ch    *fakeChannel
	blobs *fakeBlobs
	pub   *recordingPublisher

	access    *AccessService
	folders   *FolderService
	files     *FileService
	links     *LinkService
	challenge *ChallengeService
	delivery  *DeliveryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := newMemDB()
	rm := &fakeRepoManager{m: mem}
	ch := newFakeChannel()
	blobs := newFakeBlobs()
	pub := &recordingPublisher{}
	log := logging.Nop()

	folders := NewFolderService(nil, rm, log)
	return &testEnv{
		mem:       mem,
		ch:        ch,
		blobs:     blobs,
		pub:       pub,
		access:    NewAccessService(nil, rm, ch, pub, log, superOwnerID),
		folders:   folders,
		files:     NewFileService(nil, rm, folders, ch, blobs, 1<<20, pub, log),
		links:     NewLinkService(nil, rm, folders, ch, pub, log),
		challenge: NewChallengeService(nil, rm, sessions.NewMemoryStore(0), log),
		delivery:  NewDeliveryService(nil, rm, ch, blobs, 3, log),
	}
}

var uniqueSeq int

func submission(kind models.FileKind, name string) models.FileSubmission {
	uniqueSeq++
	return models.FileSubmission{
		Kind:         kind,
		FileID:       "ref-" + name,
		FileUniqueID: fmt.Sprintf("u-%s-%d", name, uniqueSeq),
		FileName:     name,
		FileSize:     100,
	}
}
