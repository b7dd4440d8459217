package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/rlch/lineage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// AncestorNode is a person with their ancestors above them.
type AncestorNode struct {
	Person *lineage.Person `json:"person"`
	// Relationship is the parent-child edge linking Person to the node
	// below. It is nil at the root.
	Relationship *lineage.Relationship `json:"relationship,omitempty"`
	Parents      []*AncestorNode       `json:"parents"`
}

// DescendantNode is a person with their descendants below them.
type DescendantNode struct {
	Person *lineage.Person `json:"person"`
	// Relationship is the parent-child edge linking Person to the node
	// above. It is nil at the root.
	Relationship *lineage.Relationship `json:"relationship,omitempty"`
	Children     []*DescendantNode     `json:"children"`
}

// Relative is a directly linked person and the edge linking them.
type Relative struct {
	Person       *lineage.Person       `json:"person"`
	Relationship *lineage.Relationship `json:"relationship"`
}

// ChartNode is one person in a family chart: their spouses, their children
// as nested charts and, at the root only, their parents.
type ChartNode struct {
	Person       *lineage.Person       `json:"person"`
	Relationship *lineage.Relationship `json:"relationship,omitempty"`
	Spouses      []*Relative           `json:"spouses"`
	Children     []*ChartNode          `json:"children"`
	Parents      []*Relative           `json:"parents,omitempty"`
}

// Traverser computes bounded views over a Store. It only reads.
type Traverser struct {
	store  lineage.Store
	opts   options
	logger *zap.Logger
	sem    *semaphore.Weighted
}

// NewTraverser returns a Traverser reading from store.
func NewTraverser(store lineage.Store, opts ...Option) *Traverser {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Traverser{
		store:  store,
		opts:   o,
		logger: o.logger,
		sem:    semaphore.NewWeighted(int64(o.concurrency)),
	}
}

// Ancestors returns the ancestor tree of id, at most generations levels
// above it. Zero generations returns the person alone.
func (t *Traverser) Ancestors(ctx context.Context, id string, generations int) (*AncestorNode, error) {
	generations, err := t.clamp(generations)
	if err != nil {
		return nil, err
	}

	root, err := t.store.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	return t.ancestors(ctx, root, nil, 0, generations, nil)
}

func (t *Traverser) ancestors(
	ctx context.Context,
	p *lineage.Person,
	rel *lineage.Relationship,
	depth, generations int,
	path *pathSet,
) (*AncestorNode, error) {
	node := &AncestorNode{Person: p, Relationship: rel, Parents: []*AncestorNode{}}
	if depth >= generations {
		return node, nil
	}

	path = path.with(p.ID)

	rels, err := t.store.FindRelationships(ctx, lineage.ParentsOf(p.ID))
	if err != nil {
		return nil, err
	}

	node.Parents, err = expand(ctx, t, rels, func(ctx context.Context, r *lineage.Relationship) (*AncestorNode, error) {
		parent, err := t.follow(ctx, r, r.Person1ID, path)
		if parent == nil || err != nil {
			return nil, err
		}

		return t.ancestors(ctx, parent, r, depth+1, generations, path)
	})
	if err != nil {
		return nil, err
	}

	return node, nil
}

// Descendants returns the descendant tree of id, at most generations levels
// below it. Zero generations returns the person alone.
func (t *Traverser) Descendants(ctx context.Context, id string, generations int) (*DescendantNode, error) {
	generations, err := t.clamp(generations)
	if err != nil {
		return nil, err
	}

	root, err := t.store.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	return t.descendants(ctx, root, nil, 0, generations, nil)
}

func (t *Traverser) descendants(
	ctx context.Context,
	p *lineage.Person,
	rel *lineage.Relationship,
	depth, generations int,
	path *pathSet,
) (*DescendantNode, error) {
	node := &DescendantNode{Person: p, Relationship: rel, Children: []*DescendantNode{}}
	if depth >= generations {
		return node, nil
	}

	path = path.with(p.ID)

	rels, err := t.store.FindRelationships(ctx, lineage.ChildrenOf(p.ID))
	if err != nil {
		return nil, err
	}

	node.Children, err = expand(ctx, t, rels, func(ctx context.Context, r *lineage.Relationship) (*DescendantNode, error) {
		child, err := t.follow(ctx, r, r.Person2ID, path)
		if child == nil || err != nil {
			return nil, err
		}

		return t.descendants(ctx, child, r, depth+1, generations, path)
	})
	if err != nil {
		return nil, err
	}

	return node, nil
}

// FamilyChart returns a descendant-oriented chart rooted at id. Each node
// carries its spouses and, recursively, its children. The root also carries
// its parents, which are not expanded further. A person appears at most once
// per branch, but may appear under each of their parents.
func (t *Traverser) FamilyChart(ctx context.Context, id string, generations int) (*ChartNode, error) {
	if generations < 1 {
		return nil, fmt.Errorf("%w: chart needs at least one generation, got %d", lineage.ErrInvalidArgument, generations)
	}

	generations = min(generations, t.opts.maxGenerations)

	root, err := t.store.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	node, err := t.chart(ctx, root, nil, 0, generations, nil)
	if err != nil {
		return nil, err
	}

	node.Parents, err = t.relatives(ctx, lineage.ParentsOf(id), id)
	if err != nil {
		return nil, err
	}

	return node, nil
}

func (t *Traverser) chart(
	ctx context.Context,
	p *lineage.Person,
	rel *lineage.Relationship,
	depth, generations int,
	path *pathSet,
) (*ChartNode, error) {
	if depth >= generations || path.has(p.ID) {
		return nil, nil //nolint:nilnil // absent node
	}

	path = path.with(p.ID)

	spouses, err := t.relatives(ctx, lineage.SpousesOf(p.ID), p.ID)
	if err != nil {
		return nil, err
	}

	rels, err := t.store.FindRelationships(ctx, lineage.ChildrenOf(p.ID))
	if err != nil {
		return nil, err
	}

	children, err := expand(ctx, t, rels, func(ctx context.Context, r *lineage.Relationship) (*ChartNode, error) {
		child, err := t.follow(ctx, r, r.Person2ID, path)
		if child == nil || err != nil {
			return nil, err
		}

		return t.chart(ctx, child, r, depth+1, generations, path)
	})
	if err != nil {
		return nil, err
	}

	return &ChartNode{Person: p, Relationship: rel, Spouses: spouses, Children: children}, nil
}

// relatives resolves the far endpoint of every edge matching filter.
func (t *Traverser) relatives(ctx context.Context, filter lineage.RelationshipFilter, id string) ([]*Relative, error) {
	rels, err := t.store.FindRelationships(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]*Relative, 0, len(rels))

	for _, r := range rels {
		p, err := t.follow(ctx, r, r.Other(id), nil)
		if err != nil {
			return nil, err
		}

		if p != nil {
			out = append(out, &Relative{Person: p, Relationship: r})
		}
	}

	return out, nil
}

// follow loads the person at the far end of r. It returns nil without an
// error when that person is already on the branch or missing from the
// store, so cyclic or dangling data prunes the branch instead of failing the
// whole view.
func (t *Traverser) follow(ctx context.Context, r *lineage.Relationship, id string, path *pathSet) (*lineage.Person, error) {
	if path.has(id) {
		t.logger.Warn("cycle in relationship graph",
			zap.String("relationship", r.ID),
			zap.String("person", id),
			zap.Int("depth", path.len()))

		return nil, nil
	}

	p, err := t.store.GetPerson(ctx, id)
	if errors.Is(err, lineage.ErrNotFound) {
		t.logger.Warn("dangling relationship",
			zap.String("relationship", r.ID),
			zap.String("person", id))

		return nil, nil
	}

	return p, err
}

func (t *Traverser) clamp(generations int) (int, error) {
	if generations < 0 {
		return 0, fmt.Errorf("%w: negative generations %d", lineage.ErrInvalidArgument, generations)
	}

	return min(generations, t.opts.maxGenerations), nil
}

// expand runs fn over items and returns the non-nil results in item order.
// Items run on their own goroutine while the traverser has spare capacity
// and inline otherwise, so nested expansions never wait on a slot held by
// an ancestor.
func expand[T any](
	ctx context.Context,
	t *Traverser,
	items []*lineage.Relationship,
	fn func(context.Context, *lineage.Relationship) (*T, error),
) ([]*T, error) {
	results := make([]*T, len(items))
	g, ctx := errgroup.WithContext(ctx)

	for i, item := range items {
		run := func() error {
			res, err := fn(ctx, item)
			results[i] = res

			return err
		}

		if t.sem.TryAcquire(1) {
			g.Go(func() error {
				defer t.sem.Release(1)

				return run()
			})

			continue
		}

		if err := run(); err != nil {
			_ = g.Wait()

			return nil, err
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(results))

	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}

	return out, nil
}
