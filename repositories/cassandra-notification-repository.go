package repositories

import (
	"context"
	"fmt"
	"time"

	"workhub-manager/server/logging"
	"workhub-manager/server/models"

	"github.com/gocql/gocql"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CassandraNoticeRepository stores one row per addressed user, partitioned by
// user id. Notice ids are ObjectID hex strings, so clustering on id orders rows
// newest first.
type CassandraNoticeRepository struct {
	session *gocql.Session
}

func NewCassandraNoticeRepository(host, keyspace string) (*CassandraNoticeRepository, error) {
	if host == "" {
		host = "127.0.0.1"
	}

	cluster := gocql.NewCluster(host)
	cluster.Keyspace = "system"
	cluster.Timeout = 10 * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cassandra: %w", err)
	}

	err = session.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`, keyspace)).Exec()
	session.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to create keyspace %s: %w", keyspace, err)
	}

	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to keyspace %s: %w", keyspace, err)
	}

	logging.Logger.Infof("Event ID: CASSANDRA_CONNECTED, Description: Connected to Cassandra keyspace %s", keyspace)
	return &CassandraNoticeRepository{session: session}, nil
}

func (r *CassandraNoticeRepository) CloseSession() {
	r.session.Close()
	logging.Logger.Info("Event ID: CASSANDRA_CLOSED, Description: Cassandra session closed")
}

func (r *CassandraNoticeRepository) CreateTable() error {
	err := r.session.Query(
		`CREATE TABLE IF NOT EXISTS notices (
			user_id TEXT,
			id TEXT,
			team LIST<TEXT>,
			text TEXT,
			task TEXT,
			noti_type TEXT,
			is_read BOOLEAN,
			created_at TIMESTAMP,
			PRIMARY KEY ((user_id), id)
		) WITH CLUSTERING ORDER BY (id DESC)`).Exec()
	if err != nil {
		return fmt.Errorf("failed to create notices table: %w", err)
	}
	return nil
}

func (r *CassandraNoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID.IsZero() {
		notice.ID = primitive.NewObjectID()
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now()
	}
	if notice.IsRead == nil {
		notice.IsRead = []primitive.ObjectID{}
	}

	team := hexIDs(notice.Team)
	batch := r.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, member := range team {
		batch.Query(
			`INSERT INTO notices (user_id, id, team, text, task, noti_type, is_read, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			member, notice.ID.Hex(), team, notice.Text, notice.Task.Hex(),
			string(notice.NotiType), false, notice.CreatedAt,
		)
	}
	if err := r.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("failed to create notice: %w", err)
	}
	return nil
}

func (r *CassandraNoticeRepository) FindUnread(ctx context.Context, userID primitive.ObjectID) ([]models.Notice, error) {
	iter := r.session.Query(
		`SELECT id, team, text, task, noti_type, is_read, created_at
		 FROM notices WHERE user_id = ?`, userID.Hex()).WithContext(ctx).Iter()

	notices := []models.Notice{}
	var (
		id, text, task, notiType string
		team                     []string
		isRead                   bool
		createdAt                time.Time
	)
	for iter.Scan(&id, &team, &text, &task, &notiType, &isRead, &createdAt) {
		if isRead {
			continue
		}
		notice, err := noticeFromRow(id, team, text, task, notiType, createdAt)
		if err != nil {
			logging.Logger.Warnf("Event ID: NOTICE_ROW_SKIPPED, Description: %v", err)
			continue
		}
		notices = append(notices, notice)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to retrieve notices: %w", err)
	}
	return notices, nil
}

func (r *CassandraNoticeRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	notices, err := r.FindUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	var marked int64
	for _, n := range notices {
		count, err := r.MarkRead(ctx, n.ID, userID)
		if err != nil {
			return marked, err
		}
		marked += count
	}
	return marked, nil
}

func (r *CassandraNoticeRepository) MarkRead(ctx context.Context, noticeID, userID primitive.ObjectID) (int64, error) {
	applied, err := r.session.Query(
		`UPDATE notices SET is_read = true WHERE user_id = ? AND id = ? IF is_read = false`,
		userID.Hex(), noticeID.Hex()).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return 0, fmt.Errorf("failed to mark notice as read: %w", err)
	}
	if !applied {
		return 0, nil
	}
	return 1, nil
}

// noticeFromRow builds the notice as seen by the row's member. Rows hold only
// that member's read state, so IsRead is always empty for unread rows.
func noticeFromRow(id string, team []string, text, task, notiType string, createdAt time.Time) (models.Notice, error) {
	noticeID, err := models.ParseID(id)
	if err != nil {
		return models.Notice{}, err
	}
	members, err := models.ParseIDs(team)
	if err != nil {
		return models.Notice{}, err
	}
	taskID, err := models.ParseID(task)
	if err != nil {
		return models.Notice{}, err
	}
	return models.Notice{
		ID:        noticeID,
		Team:      members,
		Text:      text,
		Task:      taskID,
		NotiType:  models.NoticeType(notiType),
		IsRead:    []primitive.ObjectID{},
		CreatedAt: createdAt,
	}, nil
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
