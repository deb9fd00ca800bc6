package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"forum_go/internal/model"

	"github.com/jmoiron/sqlx"
)

// ContentTree 内容树只读接口（聚合引擎只依赖这一部分）
type ContentTree interface {
	GetNode(ctx context.Context, id int64) (*model.Node, error)
	Children(ctx context.Context, parentID int64, kind model.Kind, status model.PublishState) ([]*model.Node, error)
	ChildrenOf(ctx context.Context, parentIDs []int64, kind model.Kind, status model.PublishState) ([]*model.Node, error)
}

// NodeRepository 内容树读写接口
type NodeRepository interface {
	ContentTree
	Create(ctx context.Context, node *model.Node) error
	Delete(ctx context.Context, id int64) error
	Move(ctx context.Context, id, parentID int64) error
	SetStatus(ctx context.Context, id int64, status model.PublishState) error
	Roots(ctx context.Context, kind model.Kind) ([]*model.Node, error)
}

// AnyStatus Children 不按发布状态过滤
const AnyStatus model.PublishState = ""

const nodeColumns = "id, type, parent_id, author_id, title, dateline, status"

// nodeRow node 表行
type nodeRow struct {
	ID       int64  `db:"id"`
	Type     string `db:"type"`
	ParentID int64  `db:"parent_id"`
	AuthorID int64  `db:"author_id"`
	Title    string `db:"title"`
	Dateline int64  `db:"dateline"`
	Status   string `db:"status"`
}

func (r *nodeRow) toModel() (*model.Node, error) {
	kind, err := model.ParseKind(r.Type)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", r.ID, err)
	}
	return &model.Node{
		ID:       r.ID,
		Kind:     kind,
		ParentID: r.ParentID,
		AuthorID: r.AuthorID,
		Title:    r.Title,
		Dateline: r.Dateline,
		Status:   model.PublishState(r.Status),
	}, nil
}

func rowsToModels(rows []nodeRow) ([]*model.Node, error) {
	nodes := make([]*model.Node, 0, len(rows))
	for i := range rows {
		n, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// nodeRepository 内容树 sqlx 实现
type nodeRepository struct {
	db *sqlx.DB
}

var _ NodeRepository = (*nodeRepository)(nil)

// NewNodeRepository 创建 NodeRepository 实例
func NewNodeRepository(db *sqlx.DB) NodeRepository {
	return &nodeRepository{db: db}
}

// GetNode 根据 ID 获取节点，不存在时返回 nil, nil
func (r *nodeRepository) GetNode(ctx context.Context, id int64) (*model.Node, error) {
	var row nodeRow
	err := r.db.GetContext(ctx, &row, "SELECT "+nodeColumns+" FROM node WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel()
}

// Children 获取子节点，按创建时间升序
func (r *nodeRepository) Children(ctx context.Context, parentID int64, kind model.Kind, status model.PublishState) ([]*model.Node, error) {
	return r.ChildrenOf(ctx, []int64{parentID}, kind, status)
}

// ChildrenOf 批量获取多个父节点的子节点
func (r *nodeRepository) ChildrenOf(ctx context.Context, parentIDs []int64, kind model.Kind, status model.PublishState) ([]*model.Node, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	query := "SELECT " + nodeColumns + " FROM node WHERE parent_id IN (?) AND type = ?"
	args := []interface{}{parentIDs, kind.String()}
	if status != AnyStatus {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY dateline ASC, id ASC"

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	var rows []nodeRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rowsToModels(rows)
}

// Roots 获取根节点
func (r *nodeRepository) Roots(ctx context.Context, kind model.Kind) ([]*model.Node, error) {
	var rows []nodeRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+nodeColumns+" FROM node WHERE parent_id = 0 AND type = ? ORDER BY dateline ASC, id ASC",
		kind.String())
	if err != nil {
		return nil, err
	}
	return rowsToModels(rows)
}

// Create 创建节点（ID 由调用方生成）
func (r *nodeRepository) Create(ctx context.Context, node *model.Node) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO node (id, type, parent_id, author_id, title, dateline, status) VALUES (?, ?, ?, ?, ?, ?, ?)",
		node.ID, node.Kind.String(), node.ParentID, node.AuthorID, node.Title, node.Dateline, string(node.Status))
	return err
}

// Delete 删除节点及其 meta
func (r *nodeRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM node_meta WHERE node_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM node WHERE id = ?", id); err != nil {
		return err
	}

	return tx.Commit()
}

// Move 修改父节点
func (r *nodeRepository) Move(ctx context.Context, id, parentID int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE node SET parent_id = ? WHERE id = ?", parentID, id)
	return err
}

// SetStatus 修改发布状态
func (r *nodeRepository) SetStatus(ctx context.Context, id int64, status model.PublishState) error {
	_, err := r.db.ExecContext(ctx, "UPDATE node SET status = ? WHERE id = ?", string(status), id)
	return err
}
