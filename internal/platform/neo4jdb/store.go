package neo4jdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Summary carries the write counters of one statement, so callers can tell
// whether a MERGE actually created anything.
type Summary struct {
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	PropertiesSet        int
}

func (s Summary) Add(other Summary) Summary {
	return Summary{
		NodesCreated:         s.NodesCreated + other.NodesCreated,
		NodesDeleted:         s.NodesDeleted + other.NodesDeleted,
		RelationshipsCreated: s.RelationshipsCreated + other.RelationshipsCreated,
		PropertiesSet:        s.PropertiesSet + other.PropertiesSet,
	}
}

// NodeRef identifies a node by label and uniqueness key.
type NodeRef struct {
	Label   string
	KeyProp string
	Key     string
}

// Tx is the statement surface handed to WriteTx units of work, so graph
// code above this package does not handle driver records directly.
type Tx interface {
	Run(query string, params map[string]any) ([]map[string]any, Summary, error)
}

type managedTx struct {
	ctx context.Context
	tx  neo4j.ManagedTransaction
}

func (t managedTx) Run(query string, params map[string]any) ([]map[string]any, Summary, error) {
	res, err := t.tx.Run(t.ctx, query, params)
	if err != nil {
		return nil, Summary{}, err
	}
	return drain(t.ctx, res)
}

func drain(ctx context.Context, res neo4j.ResultWithContext) ([]map[string]any, Summary, error) {
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, Summary{}, err
	}
	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.AsMap())
	}
	sum, err := res.Consume(ctx)
	if err != nil {
		return rows, Summary{}, err
	}
	c := sum.Counters()
	return rows, Summary{
		NodesCreated:         c.NodesCreated(),
		NodesDeleted:         c.NodesDeleted(),
		RelationshipsCreated: c.RelationshipsCreated(),
		PropertiesSet:        c.PropertiesSet(),
	}, nil
}

// Read runs a single read-only statement in its own session.
func (c *Client) Read(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		out, _, err := managedTx{ctx: ctx, tx: tx}.Run(query, params)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	return rows.([]map[string]any), nil
}

// Write runs a single write statement in its own transaction.
func (c *Client) Write(ctx context.Context, query string, params map[string]any) ([]map[string]any, Summary, error) {
	type result struct {
		rows []map[string]any
		sum  Summary
	}

	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		rows, sum, err := managedTx{ctx: ctx, tx: tx}.Run(query, params)
		if err != nil {
			return nil, err
		}
		return result{rows: rows, sum: sum}, nil
	})
	if err != nil {
		return nil, Summary{}, err
	}
	r := out.(result)
	return r.rows, r.sum, nil
}

// WriteTx runs fn inside one managed write transaction. An error from fn
// rolls the whole transaction back. The driver may re-invoke fn after a
// transient failure, each attempt in a fresh transaction; fn must not carry
// state across attempts.
func (c *Client) WriteTx(ctx context.Context, fn func(tx Tx) error) error {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := fn(managedTx{ctx: ctx, tx: tx}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// UpsertNode merges a node by its uniqueness key, setting props only on
// create. Reports whether the node was created by this call.
func (c *Client) UpsertNode(ctx context.Context, ref NodeRef, props map[string]any) (bool, error) {
	if props == nil {
		props = map[string]any{}
	}
	query := fmt.Sprintf(
		"MERGE (n:%s {%s: $key}) ON CREATE SET n += $props, n.created_at = datetime()",
		ref.Label, ref.KeyProp,
	)
	_, sum, err := c.Write(ctx, query, map[string]any{"key": ref.Key, "props": props})
	if err != nil {
		return false, fmt.Errorf("neo4jdb: upsert %s %q: %w", ref.Label, ref.Key, err)
	}
	return sum.NodesCreated > 0, nil
}

// CreateEdge merges a typed edge between two existing nodes. A repeat call
// with the same endpoints and type does not duplicate the edge.
func (c *Client) CreateEdge(ctx context.Context, relType string, from, to NodeRef, props map[string]any) (bool, error) {
	if props == nil {
		props = map[string]any{}
	}
	query := fmt.Sprintf(
		`MATCH (a:%s {%s: $fromKey})
		 MATCH (b:%s {%s: $toKey})
		 MERGE (a)-[r:%s]->(b)
		 ON CREATE SET r += $props`,
		from.Label, from.KeyProp, to.Label, to.KeyProp, relType,
	)
	_, sum, err := c.Write(ctx, query, map[string]any{
		"fromKey": from.Key,
		"toKey":   to.Key,
		"props":   props,
	})
	if err != nil {
		return false, fmt.Errorf("neo4jdb: create edge %s: %w", relType, err)
	}
	return sum.RelationshipsCreated > 0, nil
}
