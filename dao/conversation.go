package dao

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Pulau-Komodo/chatbot/models"
)

// Store-integrity errors surfaced by the conversation graph.
var (
	// ErrDuplicateID means a node with that message id already exists.
	ErrDuplicateID = errors.New("conversation node id already exists")
	// ErrDanglingParent means the referenced parent node does not exist.
	ErrDanglingParent = errors.New("conversation parent does not exist")
	// ErrNotFound means no node with that message id exists.
	ErrNotFound = errors.New("conversation node not found")
)

// ConversationDAO handles the append-only exchange graph. Nodes are
// immutable once written, except that a parent link may be severed.
type ConversationDAO struct {
	db *gorm.DB
}

func NewConversationDAO(db *gorm.DB) *ConversationDAO {
	return &ConversationDAO{db: db}
}

// Create writes a new exchange node. The parent, if given, must already
// exist; since references can only point at pre-existing nodes, the graph
// can never contain a cycle.
func (d *ConversationDAO) Create(message uint64, parent *uint64, input, output string, systemMessage *string) (*models.Conversation, error) {
	if parent != nil {
		var count int64
		if err := d.db.Model(&models.Conversation{}).Where("message = ?", *parent).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrDanglingParent
		}
	}
	node := &models.Conversation{
		Message:       message,
		Parent:        parent,
		Input:         input,
		Output:        output,
		SystemMessage: systemMessage,
	}
	if err := d.db.Create(node).Error; err != nil {
		// Uniqueness is enforced by the primary key, so concurrent creates
		// with the same id settle at the database rather than racing a
		// read-then-insert check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateID
		}
		return nil, err
	}
	return node, nil
}

// Get retrieves a single exchange node by message id.
func (d *ConversationDAO) Get(message uint64) (*models.Conversation, error) {
	var node models.Conversation
	err := d.db.Where("message = ?", message).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &node, nil
}

// Sever clears the node's parent link. Idempotent; severing a node that has
// no parent, or that does not exist, is a no-op. Children keep their links.
func (d *ConversationDAO) Sever(message uint64) error {
	return d.db.Model(&models.Conversation{}).
		Where("message = ?", message).
		Update("parent", nil).Error
}

// Ancestors walks parent links from the given node toward the root,
// returning nodes newest-first, at most limit of them. The walk is
// iterative and stops silently at the limit so arbitrarily deep chains
// just lose their oldest turns.
func (d *ConversationDAO) Ancestors(message uint64, limit int) ([]models.Conversation, error) {
	chain := make([]models.Conversation, 0, limit)
	next := &message
	for next != nil && len(chain) < limit {
		node, err := d.Get(*next)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// A severed or missing link just ends the history.
				break
			}
			return nil, err
		}
		chain = append(chain, *node)
		next = node.Parent
	}
	return chain, nil
}
