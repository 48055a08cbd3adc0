package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/repository"
)

func newTodoServiceForTest(t *testing.T, labels ...string) (*TodoService, repository.TodoRepository, []uint) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewTodoRepository(newDBForTest(t))
	svc := NewTodoService(repo)
	if _, err := svc.EnsureList(ctx, "dashboard", "Dashboard"); err != nil {
		t.Fatalf("ensure list: %v", err)
	}
	ids := make([]uint, 0, len(labels))
	for _, l := range labels {
		task, err := svc.Append(ctx, "dashboard", l)
		if err != nil {
			t.Fatalf("append %q: %v", l, err)
		}
		ids = append(ids, task.ID)
	}
	return svc, repo, ids
}

func TestAppendPlacesTaskAtEnd(t *testing.T) {
	svc, _, ids := newTodoServiceForTest(t, "a", "b")
	task, err := svc.Append(context.Background(), "dashboard", "  c  ")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if task.Label != "c" || task.Finished || task.Position != 3 {
		t.Fatalf("unexpected task %+v", task)
	}

	view, err := svc.List(context.Background(), "dashboard")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := append(ids, task.ID)
	if !slices.Equal(view.Order, want) {
		t.Fatalf("expected order %v, got %v", want, view.Order)
	}
	if view.Title != "Dashboard" || len(view.Tasks) != 3 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestAppendValidation(t *testing.T) {
	svc, _, _ := newTodoServiceForTest(t)
	ctx := context.Background()
	if _, err := svc.Append(ctx, "dashboard", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for blank label, got %v", err)
	}
	if _, err := svc.Append(ctx, "missing", "x"); !errors.Is(err, repository.ErrTodoListNotFound) {
		t.Fatalf("expected list not found, got %v", err)
	}
}

func TestToggleSetsExplicitState(t *testing.T) {
	svc, _, ids := newTodoServiceForTest(t, "a")
	ctx := context.Background()
	for _, want := range []bool{true, true, false} {
		task, err := svc.Toggle(ctx, "dashboard", ids[0], want)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if task.Finished != want {
			t.Fatalf("expected finished=%v, got %v", want, task.Finished)
		}
	}
	if _, err := svc.Toggle(ctx, "dashboard", 999, true); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReorderRoundTripsListOrder(t *testing.T) {
	svc, _, ids := newTodoServiceForTest(t, "a", "b", "c")
	ctx := context.Background()
	reversed := []uint{ids[2], ids[1], ids[0]}
	if err := svc.Reorder(ctx, "dashboard", PositionsFromOrder(reversed)); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	view, err := svc.List(ctx, "dashboard")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !slices.Equal(view.Order, reversed) {
		t.Fatalf("expected %v, got %v", reversed, view.Order)
	}
	if err := svc.Reorder(ctx, "dashboard", PositionsFromOrder(view.Order)); err != nil {
		t.Fatalf("reapply order: %v", err)
	}
	again, _ := svc.List(ctx, "dashboard")
	if !slices.Equal(again.Order, view.Order) {
		t.Fatalf("expected stable order %v, got %v", view.Order, again.Order)
	}
}

func TestReorderIsAllOrNothing(t *testing.T) {
	svc, _, ids := newTodoServiceForTest(t, "a", "b", "c")
	ctx := context.Background()

	cases := []struct {
		name      string
		positions []domain.TaskPosition
		check     func(error) bool
	}{
		{"empty", nil, func(err error) bool { return errors.Is(err, ErrValidation) }},
		{"negative", []domain.TaskPosition{{TaskID: ids[0], Position: -1}}, func(err error) bool { return errors.Is(err, ErrValidation) }},
		{"duplicate id", []domain.TaskPosition{{TaskID: ids[0], Position: 2}, {TaskID: ids[0], Position: 3}}, func(err error) bool { return errors.Is(err, ErrValidation) }},
		{"collision", []domain.TaskPosition{{TaskID: ids[0], Position: 2}}, func(err error) bool { return errors.Is(err, ErrValidation) }},
		{"unknown task", []domain.TaskPosition{{TaskID: ids[0], Position: 3}, {TaskID: ids[2], Position: 1}, {TaskID: 999, Position: 9}}, IsNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Reorder(ctx, "dashboard", tc.positions); !tc.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			view, err := svc.List(ctx, "dashboard")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if !slices.Equal(view.Order, ids) {
				t.Fatalf("expected untouched order %v, got %v", ids, view.Order)
			}
		})
	}
}

func TestConcurrentReordersKeepPositionsUnique(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e", "f"}
	first, repo, ids := newTodoServiceForTest(t, labels...)
	// A second service over the same store stands in for another process.
	second := NewTodoService(repo)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 24; i++ {
		svc := first
		if i%2 == 1 {
			svc = second
		}
		full := i%3 != 0
		g.Go(func() error {
			var positions []domain.TaskPosition
			if full {
				perm := rand.Perm(len(ids))
				order := make([]uint, len(ids))
				for j, p := range perm {
					order[j] = ids[p]
				}
				positions = PositionsFromOrder(order)
			} else {
				view, err := svc.List(ctx, "dashboard")
				if err != nil {
					return err
				}
				a, b := view.Tasks[0], view.Tasks[len(view.Tasks)-1]
				positions = []domain.TaskPosition{
					{TaskID: a.ID, Position: b.Position},
					{TaskID: b.ID, Position: a.Position},
				}
			}
			if err := svc.Reorder(ctx, "dashboard", positions); err != nil && !errors.Is(err, ErrValidation) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent reorder: %v", err)
	}

	view, err := first.List(context.Background(), "dashboard")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]int, 0, len(view.Tasks))
	for _, task := range view.Tasks {
		got = append(got, task.Position)
	}
	want := []int{1, 2, 3, 4, 5, 6}
	if !slices.Equal(got, want) {
		t.Fatalf("expected positions %v, got %v", want, got)
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlock()
	if len(k.locks) != 0 {
		t.Fatalf("expected no retained locks, got %d", len(k.locks))
	}
}
