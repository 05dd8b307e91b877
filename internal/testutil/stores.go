package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Spok95/construction-bot/internal/domain/batches"
	"github.com/Spok95/construction-bot/internal/domain/dailyreports"
	"github.com/Spok95/construction-bot/internal/domain/deliveries"
	"github.com/Spok95/construction-bot/internal/domain/files"
	"github.com/Spok95/construction-bot/internal/domain/issues"
	"github.com/Spok95/construction-bot/internal/domain/projects"
	"github.com/Spok95/construction-bot/internal/domain/tasks"
	"github.com/Spok95/construction-bot/internal/domain/users"
)

// Users

type Users struct {
	mu   sync.Mutex
	next int64
	byID map[int64]*users.User
}

func NewUsers() *Users { return &Users{byID: map[int64]*users.User{}} }

// Add заводит активного пользователя; chat id совпадает с telegram id
func (s *Users) Add(tgID int64, name string, role users.Role, allowed ...int64) *users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	u := &users.User{
		ID: s.next, TelegramID: tgID, ChatID: tgID, FullName: name, Role: role,
		Status: users.StatusActive, AllowedProjectIDs: allowed,
	}
	s.byID[u.ID] = u
	cp := *u
	return &cp
}

func (s *Users) GetByTelegramID(_ context.Context, tgID int64) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.TelegramID == tgID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Users) GetByID(_ context.Context, id int64) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *Users) Register(ctx context.Context, tg users.Telegram, role users.Role, status users.Status) (*users.User, error) {
	if u, _ := s.GetByTelegramID(ctx, tg.ID); u != nil {
		s.mu.Lock()
		s.byID[u.ID].ChatID, s.byID[u.ID].Username = tg.ChatID, tg.Username
		s.mu.Unlock()
		return s.GetByID(ctx, u.ID)
	}
	s.mu.Lock()
	s.next++
	u := &users.User{ID: s.next, TelegramID: tg.ID, ChatID: tg.ChatID, Username: tg.Username, Role: role, Status: status}
	s.byID[u.ID] = u
	s.mu.Unlock()
	return s.GetByID(ctx, u.ID)
}

func (s *Users) SetFullName(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		u.FullName = name
	}
	return nil
}

func (s *Users) Activate(_ context.Context, id int64, role users.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		if u.Role != users.RoleAdmin {
			u.Role = role
		}
		u.Status = users.StatusActive
	}
	return nil
}

func (s *Users) ListByRole(_ context.Context, roles ...users.Role) ([]users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []users.User
	for _, u := range s.byID {
		if u.Status == users.StatusActive && slices.Contains(roles, u.Role) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Projects

type Projects struct {
	mu   sync.Mutex
	list []projects.Project
}

func NewProjects(ps ...projects.Project) *Projects { return &Projects{list: ps} }

func (s *Projects) Add(p projects.Project) {
	s.mu.Lock()
	s.list = append(s.list, p)
	s.mu.Unlock()
}

func (s *Projects) Get(_ context.Context, id int64) (*projects.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.list {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Projects) List(_ context.Context) ([]projects.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]projects.Project(nil), s.list...), nil
}

// Tasks

type Tasks struct {
	mu   sync.Mutex
	list []tasks.Task
}

func NewTasks(ts ...tasks.Task) *Tasks { return &Tasks{list: ts} }

func (s *Tasks) Get(_ context.Context, id int64) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.list {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Tasks) ListForAssignee(_ context.Context, userID, projectID int64, day *time.Time) ([]tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tasks.Task
	for _, t := range s.list {
		if t.AssigneeID != userID || t.ProjectID != projectID {
			continue
		}
		if day != nil && (t.Deadline == nil || !sameDay(*t.Deadline, *day)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Tasks) SetStatus(_ context.Context, id int64, st tasks.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == id {
			s.list[i].Status = st
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Batches

type Batches struct {
	mu       sync.Mutex
	next     int64
	nextLine int64
	byID     map[int64]*batches.Batch
}

func NewBatches() *Batches { return &Batches{byID: map[int64]*batches.Batch{}} }

func cloneBatch(b *batches.Batch) *batches.Batch {
	cp := *b
	cp.Lines = append([]batches.Line(nil), b.Lines...)
	return &cp
}

func (s *Batches) Create(_ context.Context, b *batches.Batch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	b.ID = s.next
	b.Name = fmt.Sprintf("MR/%d/%05d", b.Date.Year(), s.next)
	b.CreatedAt = time.Now()
	for i := range b.Lines {
		s.nextLine++
		b.Lines[i].ID = s.nextLine
		b.Lines[i].BatchID = b.ID
		b.Lines[i].Seq = (i + 1) * 10
	}
	s.byID[b.ID] = cloneBatch(b)
	return b.ID, nil
}

func (s *Batches) AppendLines(_ context.Context, batchID int64, lines []batches.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[batchID]
	if !ok {
		return nil
	}
	seq := 0
	for _, l := range b.Lines {
		seq = max(seq, l.Seq)
	}
	for _, l := range lines {
		s.nextLine++
		seq += 10
		l.ID, l.BatchID, l.Seq = s.nextLine, batchID, seq
		b.Lines = append(b.Lines, l)
	}
	return nil
}

func (s *Batches) Get(_ context.Context, id int64) (*batches.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.byID[id]; ok {
		return cloneBatch(b), nil
	}
	return nil, nil
}

func (s *Batches) FindDraftForTask(_ context.Context, taskID int64, day time.Time) (*batches.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := int64(1); id <= s.next; id++ {
		b, ok := s.byID[id]
		if ok && b.TaskID == taskID && b.Status == batches.StatusDraft && sameDay(b.Date, day) {
			return cloneBatch(b), nil
		}
	}
	return nil, nil
}

func (s *Batches) ListByProject(_ context.Context, projectID int64, statuses []batches.Status, limit int) ([]batches.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []batches.Batch
	for id := s.next; id >= 1; id-- {
		b, ok := s.byID[id]
		if !ok || b.ProjectID != projectID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, b.Status) {
			continue
		}
		cp := *b
		cp.Lines = nil
		out = append(out, cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Batches) ListOpenLines(_ context.Context, projectID int64) ([]batches.OpenLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []batches.OpenLine
	for id := int64(1); id <= s.next; id++ {
		b, ok := s.byID[id]
		if !ok || b.ProjectID != projectID {
			continue
		}
		if b.Status != batches.StatusDraft && b.Status != batches.StatusPriced {
			continue
		}
		for _, l := range b.Lines {
			out = append(out, batches.OpenLine{Line: l, BatchStatus: b.Status})
		}
	}
	return out, nil
}

func (s *Batches) updateLine(lineID int64, fn func(*batches.Line)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.byID {
		for i := range b.Lines {
			if b.Lines[i].ID == lineID {
				fn(&b.Lines[i])
			}
		}
	}
}

func (s *Batches) SetLinePrice(_ context.Context, lineID int64, price float64) error {
	s.updateLine(lineID, func(l *batches.Line) { l.UnitPrice = price })
	return nil
}

func (s *Batches) SetLineTarget(_ context.Context, lineID int64, ref string) error {
	s.updateLine(lineID, func(l *batches.Line) { l.TargetRef = ref })
	return nil
}

func (s *Batches) UpdateStatus(_ context.Context, id int64, st batches.Status, approverID int64, decidedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.byID[id]; ok {
		b.Status = st
		if approverID != 0 {
			b.ApproverID = approverID
		}
		if decidedAt != nil {
			b.DecidedAt = decidedAt
		}
	}
	return nil
}

// Deliveries

type Deliveries struct {
	mu      sync.Mutex
	next    int64
	byBatch map[int64]*deliveries.Delivery
	logs    []deliveries.LogEntry
}

func NewDeliveries() *Deliveries { return &Deliveries{byBatch: map[int64]*deliveries.Delivery{}} }

func (s *Deliveries) GetByBatch(_ context.Context, batchID int64) (*deliveries.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.byBatch[batchID]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (s *Deliveries) ensure(batchID int64, status deliveries.Status, actorID int64, src deliveries.Source) (*deliveries.Delivery, bool) {
	if d, ok := s.byBatch[batchID]; ok {
		return d, false
	}
	s.next++
	d := &deliveries.Delivery{ID: s.next, BatchID: batchID, Status: status, UpdatedBy: actorID, UpdatedAt: time.Now()}
	s.byBatch[batchID] = d
	s.logs = append(s.logs, deliveries.InitialLog(d, actorID, src))
	return d, true
}

func (s *Deliveries) Ensure(_ context.Context, batchID int64, status deliveries.Status, actorID int64, src deliveries.Source) (*deliveries.Delivery, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, created := s.ensure(batchID, status, actorID, src)
	cp := *d
	return &cp, created, nil
}

func (s *Deliveries) SetStatus(_ context.Context, batchID int64, ch deliveries.Change, p deliveries.Policy) (*deliveries.Delivery, bool, error) {
	if !ch.Status.Valid() {
		return nil, false, deliveries.ErrUnknownStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, created := s.ensure(batchID, ch.Status, ch.ActorID, ch.Source)
	if created {
		cp := *d
		return &cp, true, nil
	}
	entry, err := deliveries.Apply(d, ch, p, time.Now())
	cp := *d
	if err != nil || entry == nil {
		return &cp, false, err
	}
	s.logs = append(s.logs, *entry)
	return &cp, true, nil
}

func (s *Deliveries) Logs(_ context.Context, deliveryID int64) ([]deliveries.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []deliveries.LogEntry
	for _, e := range s.logs {
		if e.DeliveryID == deliveryID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Issues

type Issues struct {
	mu   sync.Mutex
	next int64
	byID map[int64]*issues.Issue
}

func NewIssues() *Issues { return &Issues{byID: map[int64]*issues.Issue{}} }

func (s *Issues) Create(_ context.Context, is *issues.Issue) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	is.ID = s.next
	is.CreatedAt = time.Now()
	cp := *is
	cp.PhotoIDs = append([]string(nil), is.PhotoIDs...)
	s.byID[is.ID] = &cp
	return is.ID, nil
}

func (s *Issues) Get(_ context.Context, id int64) (*issues.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if is, ok := s.byID[id]; ok {
		cp := *is
		return &cp, nil
	}
	return nil, nil
}

func (s *Issues) SetStatus(_ context.Context, id int64, st issues.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if is, ok := s.byID[id]; ok {
		is.Status = st
	}
	return nil
}

func (s *Issues) SetNotification(_ context.Context, id, chatID int64, messageID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if is, ok := s.byID[id]; ok {
		is.NotifyChatID, is.NotifyMessageID = chatID, messageID
	}
	return nil
}

// Reports

type Reports struct {
	mu   sync.Mutex
	next int64
	list []dailyreports.Report
}

func NewReports() *Reports { return &Reports{} }

func (s *Reports) Append(_ context.Context, projectID, foremanID int64, day time.Time, text string, media []string) (*dailyreports.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		r := &s.list[i]
		if r.ProjectID == projectID && sameDay(r.Date, day) {
			switch {
			case r.Text == "":
				r.Text = text
			case text != "":
				r.Text += "\n\n" + text
			}
			r.MediaIDs = append(r.MediaIDs, media...)
			cp := *r
			return &cp, nil
		}
	}
	s.next++
	r := dailyreports.Report{ID: s.next, ProjectID: projectID, ForemanID: foremanID, Date: day, Text: text, MediaIDs: append([]string(nil), media...)}
	s.list = append(s.list, r)
	return &r, nil
}

func (s *Reports) All() []dailyreports.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dailyreports.Report(nil), s.list...)
}

// Files

type Files struct {
	mu         sync.Mutex
	categories []files.Category
	list       []files.File
}

func NewFiles(cats []files.Category, fs ...files.File) *Files {
	return &Files{categories: cats, list: fs}
}

func (s *Files) Rooms(_ context.Context, projectID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, f := range s.list {
		if f.ProjectID == projectID && f.IsLatest && !slices.Contains(out, f.Room) {
			out = append(out, f.Room)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Files) Categories(_ context.Context, projectID int64, room string) ([]files.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []files.Category
	for _, c := range s.categories {
		for _, f := range s.list {
			if f.ProjectID == projectID && f.Room == room && f.IsLatest && f.CategoryID == c.ID {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (s *Files) Latest(_ context.Context, projectID int64, room string, categoryID int64) ([]files.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []files.File
	for _, f := range s.list {
		if f.ProjectID == projectID && f.Room == room && f.CategoryID == categoryID && f.IsLatest {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Files) Get(_ context.Context, id int64) (*files.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.list {
		if f.ID == id {
			cp := f
			return &cp, nil
		}
	}
	return nil, nil
}
