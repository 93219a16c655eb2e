package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/lms-api/internal/models"
)

// memStore is an in-memory stand-in for the relational store. It enforces the same uniqueness
// rules as the schema so services can be exercised end to end.
type memStore struct {
	mu           sync.Mutex
	nextID       int64
	users        map[int64]models.User
	categories   map[int64]models.CourseCategory
	courses      map[int64]models.Course
	lessons      map[int64]models.Lesson
	enrollments  map[int64]models.Enrollment
	progress     map[[2]int64]models.LessonProgress
	audits       []models.AuditLog
	failBackfill error
	failPromote  error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[int64]models.User{},
		categories:  map[int64]models.CourseCategory{},
		courses:     map[int64]models.Course{},
		lessons:     map[int64]models.Lesson{},
		enrollments: map[int64]models.Enrollment{},
		progress:    map[[2]int64]models.LessonProgress{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addUser(role models.UserRole, email string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.users[id] = models.User{ID: id, FullName: "User " + email, Email: email, Role: role, IsActive: true}
	return id
}

func (s *memStore) addCategory(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.categories[id] = models.CourseCategory{ID: id, Name: name, IsActive: true}
	return id
}

func (s *memStore) addCourse(instructorID int64, active bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.courses[id] = models.Course{ID: id, Title: "Course", InstructorID: instructorID, IsActive: active}
	return id
}

func (s *memStore) addLessons(courseID int64, n int) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id := s.id()
		s.lessons[id] = models.Lesson{ID: id, CourseID: courseID, Title: "Lesson", Order: i + 1}
		ids = append(ids, id)
	}
	return ids
}

func (s *memStore) deleteLesson(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lessons, id)
	for key := range s.progress {
		if key[0] == id {
			delete(s.progress, key)
		}
	}
}

func (s *memStore) enrollmentFor(courseID, studentID int64) (models.Enrollment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			return e, true
		}
	}
	return models.Enrollment{}, false
}

func (s *memStore) enrollmentCount(courseID, studentID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			n++
		}
	}
	return n
}

func (s *memStore) progressCount(studentID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.progress {
		if key[1] == studentID {
			n++
		}
	}
	return n
}

func (s *memStore) completedInCourseLocked(courseID, studentID int64) int {
	n := 0
	for key := range s.progress {
		if lesson, ok := s.lessons[key[0]]; ok && lesson.CourseID == courseID && key[1] == studentID {
			n++
		}
	}
	return n
}

func (s *memStore) lessonCountLocked(courseID int64) int {
	n := 0
	for _, l := range s.lessons {
		if l.CourseID == courseID {
			n++
		}
	}
	return n
}

type memEnrollments struct{ *memStore }

func (m memEnrollments) Create(ctx context.Context, courseID, studentID int64, enrolledAt time.Time) (*models.Enrollment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			existing := e
			return &existing, false, nil
		}
	}
	e := models.Enrollment{ID: m.id(), CourseID: courseID, StudentID: studentID, EnrolledAt: enrolledAt, Status: models.EnrollmentStatusInProgress}
	m.enrollments[e.ID] = e
	return &e, true, nil
}

func (m memEnrollments) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m memEnrollments) FindByCourseAndStudent(ctx context.Context, courseID, studentID int64) (*models.Enrollment, error) {
	e, ok := m.enrollmentFor(courseID, studentID)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m memEnrollments) ListDetails(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		course := m.courses[e.CourseID]
		if filter.CourseID != nil && e.CourseID != *filter.CourseID {
			continue
		}
		if filter.StudentID != nil && e.StudentID != *filter.StudentID {
			continue
		}
		if filter.InstructorID != nil && course.InstructorID != *filter.InstructorID {
			continue
		}
		student := m.users[e.StudentID]
		out = append(out, models.EnrollmentDetail{
			Enrollment:   e,
			CourseTitle:  course.Title,
			StudentName:  student.FullName,
			StudentEmail: student.Email,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memEnrollments) UpdateStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.enrollments[id]
	e.Status = status
	m.enrollments[id] = e
	return nil
}

func (m memEnrollments) CompleteWithBackfill(ctx context.Context, enrollment models.Enrollment, completedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBackfill != nil {
		return 0, m.failBackfill
	}
	e := m.enrollments[enrollment.ID]
	e.Status = models.EnrollmentStatusCompleted
	m.enrollments[enrollment.ID] = e

	var added int64
	for _, l := range m.lessons {
		if l.CourseID != enrollment.CourseID {
			continue
		}
		key := [2]int64{l.ID, enrollment.StudentID}
		if _, ok := m.progress[key]; ok {
			continue
		}
		m.progress[key] = models.LessonProgress{ID: m.id(), LessonID: l.ID, StudentID: enrollment.StudentID, CompletedAt: completedAt}
		added++
	}
	return added, nil
}

func (m memEnrollments) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.enrollments, id)
	return nil
}

type memCourses struct{ *memStore }

func (m memCourses) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m memCourses) FindDetail(ctx context.Context, id int64) (*models.CourseDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.CourseDetail{Course: c, CategoryName: m.categories[c.CategoryID].Name, InstructorName: m.users[c.InstructorID].FullName}, nil
}

type memUsers struct{ *memStore }

func (m memUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	users, _ := m.ListAll(ctx)
	var out []models.User
	for _, u := range users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m memUsers) ListAll(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return &pq.Error{Code: "23505"}
		}
	}
	user.ID = m.id()
	m.users[user.ID] = *user
	return nil
}

func (m memUsers) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

func (m memUsers) Deactivate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.IsActive = false
	m.users[id] = u
	return nil
}

func (m memUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, *log)
	return nil
}

func (m memCourses) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CourseDetail
	for _, c := range m.courses {
		if filter.InstructorID != nil && c.InstructorID != *filter.InstructorID {
			continue
		}
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		out = append(out, models.CourseDetail{Course: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCourses) Catalog(ctx context.Context, studentID int64, search string) ([]models.CatalogCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CatalogCourse
	for _, c := range m.courses {
		if !c.IsActive {
			continue
		}
		enrolled := false
		for _, e := range m.enrollments {
			if e.CourseID == c.ID && e.StudentID == studentID {
				enrolled = true
			}
		}
		out = append(out, models.CatalogCourse{CourseDetail: models.CourseDetail{Course: c}, Enrolled: enrolled})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCourses) Create(ctx context.Context, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	course.ID = m.id()
	m.courses[course.ID] = *course
	return nil
}

func (m memCourses) Update(ctx context.Context, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.ID] = *course
	return nil
}

// Delete mirrors the schema: enrollments restrict, lessons cascade.
func (m memCourses) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.CourseID == id {
			return &pq.Error{Code: "23503"}
		}
	}
	for lessonID, l := range m.lessons {
		if l.CourseID == id {
			delete(m.lessons, lessonID)
		}
	}
	delete(m.courses, id)
	return nil
}

type memCategories struct{ *memStore }

func (m memCategories) List(ctx context.Context, activeOnly bool) ([]models.CourseCategoryDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CourseCategoryDetail
	for _, cat := range m.categories {
		if activeOnly && !cat.IsActive {
			continue
		}
		detail := models.CourseCategoryDetail{CourseCategory: cat}
		for _, c := range m.courses {
			if c.CategoryID == cat.ID {
				detail.CourseCount++
			}
		}
		out = append(out, detail)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCategories) FindByID(ctx context.Context, id int64) (*models.CourseCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat, ok := m.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &cat, nil
}

func (m memCategories) Create(ctx context.Context, category *models.CourseCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	category.ID = m.id()
	m.categories[category.ID] = *category
	return nil
}

func (m memCategories) Update(ctx context.Context, category *models.CourseCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[category.ID] = *category
	return nil
}

func (m memCategories) Deactivate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat := m.categories[id]
	cat.IsActive = false
	m.categories[id] = cat
	return nil
}

type memLessons struct{ *memStore }

func (m memLessons) ListByCourse(ctx context.Context, courseID int64) ([]models.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Lesson
	for _, l := range m.lessons {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m memLessons) NextOrder(ctx context.Context, courseID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 1
	for _, l := range m.lessons {
		if l.CourseID == courseID && l.Order >= next {
			next = l.Order + 1
		}
	}
	return next, nil
}

func (m memLessons) Create(ctx context.Context, lesson *models.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lesson.ID = m.id()
	m.lessons[lesson.ID] = *lesson
	return nil
}

func (m memLessons) Update(ctx context.Context, lesson *models.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lessons[lesson.ID] = *lesson
	return nil
}

func (m memLessons) Delete(ctx context.Context, id int64) error {
	m.deleteLesson(id)
	return nil
}

func (m memLessons) FindWithCourse(ctx context.Context, id int64) (*models.LessonWithCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := m.courses[l.CourseID]
	return &models.LessonWithCourse{Lesson: l, InstructorID: c.InstructorID, CourseIsActive: c.IsActive}, nil
}

func (m memLessons) ListWithProgress(ctx context.Context, courseID, studentID int64) ([]models.LessonProgressItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LessonProgressItem
	for _, l := range m.lessons {
		if l.CourseID != courseID {
			continue
		}
		_, done := m.progress[[2]int64{l.ID, studentID}]
		out = append(out, models.LessonProgressItem{Lesson: l, Completed: done})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

type memProgress struct{ *memStore }

func (m memProgress) RecordCompletion(ctx context.Context, enrollment models.Enrollment, lessonID int64, completedAt time.Time) (models.CompletionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{lessonID, enrollment.StudentID}
	_, exists := m.progress[key]

	completed := m.completedInCourseLocked(enrollment.CourseID, enrollment.StudentID)
	if !exists {
		completed++
	}
	promote := m.promotableLocked(enrollment.ID, completed)
	if promote && m.failPromote != nil {
		return models.CompletionOutcome{}, m.failPromote
	}

	if !exists {
		m.progress[key] = models.LessonProgress{ID: m.id(), LessonID: lessonID, StudentID: enrollment.StudentID, CompletedAt: completedAt}
	}
	if promote {
		e := m.enrollments[enrollment.ID]
		e.Status = models.EnrollmentStatusCompleted
		m.enrollments[enrollment.ID] = e
	}
	return models.CompletionOutcome{Recorded: !exists, Promoted: promote}, nil
}

func (m memProgress) Promote(ctx context.Context, enrollmentID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[enrollmentID]
	if !ok {
		return false, nil
	}
	if !m.promotableLocked(enrollmentID, m.completedInCourseLocked(e.CourseID, e.StudentID)) {
		return false, nil
	}
	if m.failPromote != nil {
		return false, m.failPromote
	}
	e.Status = models.EnrollmentStatusCompleted
	m.enrollments[enrollmentID] = e
	return true, nil
}

// promotableLocked mirrors the guarded UPDATE: the enrollment exists, is not yet COMPLETED and
// completed covers every lesson of a non-empty course.
func (m memProgress) promotableLocked(enrollmentID int64, completed int) bool {
	e, ok := m.enrollments[enrollmentID]
	if !ok || e.Status == models.EnrollmentStatusCompleted {
		return false
	}
	total := m.lessonCountLocked(e.CourseID)
	return total > 0 && completed >= total
}

type memStats struct{ *memStore }

func (m memStats) CourseEnrollments(ctx context.Context, courseID int64) (models.CompletionCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts models.CompletionCounts
	for _, e := range m.enrollments {
		if e.CourseID == courseID {
			counts.Total++
			if e.Status == models.EnrollmentStatusCompleted {
				counts.Completed++
			}
		}
	}
	return counts, nil
}

func (m memStats) InstructorCourses(ctx context.Context, instructorID int64) (models.InstructorCourseCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts models.InstructorCourseCounts
	for _, c := range m.courses {
		if c.InstructorID == instructorID {
			counts.Courses++
			if c.IsActive {
				counts.ActiveCourses++
			}
		}
	}
	return counts, nil
}

func (m memStats) InstructorEnrollments(ctx context.Context, instructorID int64) (models.CompletionCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts models.CompletionCounts
	for _, e := range m.enrollments {
		if m.courses[e.CourseID].InstructorID == instructorID {
			counts.Total++
			if e.Status == models.EnrollmentStatusCompleted {
				counts.Completed++
			}
		}
	}
	return counts, nil
}

func (m memStats) StudentCourses(ctx context.Context, studentID int64) ([]models.StudentCourseLessons, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StudentCourseLessons
	for _, e := range m.enrollments {
		c := m.courses[e.CourseID]
		if e.StudentID != studentID || !c.IsActive {
			continue
		}
		out = append(out, models.StudentCourseLessons{
			CourseID:         c.ID,
			Title:            c.Title,
			Status:           e.Status,
			TotalLessons:     m.lessonCountLocked(c.ID),
			CompletedLessons: m.completedInCourseLocked(c.ID, studentID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (m memStats) Users(ctx context.Context) (models.UserCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts models.UserCounts
	for _, u := range m.users {
		counts.Total++
		if !u.IsActive {
			continue
		}
		counts.Active++
		switch u.Role {
		case models.RoleAdmin:
			counts.Admins++
		case models.RoleInstructor:
			counts.Instructors++
		case models.RoleStudent:
			counts.Students++
		}
	}
	return counts, nil
}

func (m memStats) Courses(ctx context.Context) (models.CourseCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts models.CourseCounts
	for _, c := range m.courses {
		counts.Total++
		if c.IsActive {
			counts.Active++
		}
	}
	return counts, nil
}

func (m memStats) Enrollments(ctx context.Context) (models.CompletionCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts models.CompletionCounts
	for _, e := range m.enrollments {
		counts.Total++
		if e.Status == models.EnrollmentStatusCompleted {
			counts.Completed++
		}
	}
	return counts, nil
}

func (m memStats) CourseBreakdown(ctx context.Context, instructorID *int64) ([]models.CourseEnrollmentCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CourseEnrollmentCounts
	for _, c := range m.courses {
		if instructorID != nil && c.InstructorID != *instructorID {
			continue
		}
		row := models.CourseEnrollmentCounts{CourseID: c.ID, Title: c.Title, IsActive: c.IsActive, InstructorName: m.users[c.InstructorID].FullName}
		for _, e := range m.enrollments {
			if e.CourseID == c.ID {
				row.Total++
				if e.Status == models.EnrollmentStatusCompleted {
					row.Completed++
				}
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (m memStats) MonthlyEnrollments(ctx context.Context, since time.Time) ([]models.MonthlyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[time.Time]int{}
	for _, e := range m.enrollments {
		if e.EnrolledAt.Before(since) {
			continue
		}
		at := e.EnrolledAt.UTC()
		counts[time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)]++
	}
	var out []models.MonthlyCount
	for month, n := range counts {
		out = append(out, models.MonthlyCount{Month: month, Count: n})
	}
	return out, nil
}

// lmsFixture wires the core services over one memStore.
type lmsFixture struct {
	store       *memStore
	enrollments *EnrollmentService
	progress    *ProgressService
	stats       *StatsService
}

func newLMSFixture() *lmsFixture {
	store := newMemStore()
	return &lmsFixture{
		store:       store,
		enrollments: NewEnrollmentService(memEnrollments{store}, memCourses{store}, memUsers{store}, nil, nil, nil),
		progress:    NewProgressService(memProgress{store}, memLessons{store}, memEnrollments{store}, memCourses{store}, nil, nil),
		stats:       NewStatsService(memStats{store}, memCourses{store}, memUsers{store}, nil),
	}
}

func admin(id int64) models.Actor      { return models.Actor{UserID: id, Role: models.RoleAdmin} }
func instructor(id int64) models.Actor { return models.Actor{UserID: id, Role: models.RoleInstructor} }
func student(id int64) models.Actor    { return models.Actor{UserID: id, Role: models.RoleStudent} }
