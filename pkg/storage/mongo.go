package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store over go.mongodb.org/mongo-driver, the
// document-backend counterpart to SQLStore. Collections mirror the SQL
// tables 1:1 (chat_history, short_term_memory, long_term_memory);
// non-persisted/derived fields use bson:"-" the way the retrieved
// session model tags its runtime-only fields.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// chatHistoryDoc, shortTermDoc, longTermDoc mirror ChatHistory /
// ShortTermMemory / LongTermMemory with bson tags; kept distinct from
// the domain types so storage encoding concerns (tags, omitempty)
// don't leak into the domain model used by search/classifier/curator.
type chatHistoryDoc struct {
	ID            string         `bson:"_id"`
	UserID        string         `bson:"user_id"`
	AssistantID   string         `bson:"assistant_id"`
	SessionID     string         `bson:"session_id"`
	UserInput     string         `bson:"user_input"`
	AssistantResp string         `bson:"assistant_resp"`
	Model         string         `bson:"model,omitempty"`
	Metadata      map[string]any `bson:"metadata,omitempty"`
	CreatedAt     time.Time      `bson:"created_at"`
}

type shortTermDoc struct {
	ID                 string    `bson:"_id"`
	UserID             string    `bson:"user_id"`
	AssistantID        string    `bson:"assistant_id"`
	SessionID          string    `bson:"session_id"`
	ChatID             string    `bson:"chat_id,omitempty"`
	Content            string    `bson:"content"`
	Category           string    `bson:"category,omitempty"`
	PromotedFrom       string    `bson:"promoted_from,omitempty"`
	Importance         float64   `bson:"importance"`
	IsPermanentContext bool      `bson:"is_permanent_context"`
	CreatedAt          time.Time `bson:"created_at"`
	ExpiresAt          time.Time `bson:"expires_at,omitempty"`
}

// longTermDoc's AssistantID uses omitempty: an absent field and a
// present-but-empty field both mean "shared across every assistant",
// mirroring the SQL backend's NULL assistant_id.
type longTermDoc struct {
	ID          string  `bson:"_id"`
	UserID      string  `bson:"user_id"`
	AssistantID string  `bson:"assistant_id,omitempty"`
	SessionID   string  `bson:"session_id,omitempty"`
	ChatID      string  `bson:"chat_id,omitempty"`
	Summary     string  `bson:"summary"`
	Category    string  `bson:"category,omitempty"`
	Importance  float64 `bson:"importance"`

	Classification   string `bson:"classification,omitempty"`
	MemoryImportance string `bson:"memory_importance,omitempty"`
	Topic            string `bson:"topic,omitempty"`

	IsUserContext     bool `bson:"is_user_context"`
	IsPreference      bool `bson:"is_preference"`
	IsSkillKnowledge  bool `bson:"is_skill_knowledge"`
	IsCurrentProject  bool `bson:"is_current_project"`
	PromotionEligible bool `bson:"promotion_eligible"`

	Entities        []string `bson:"entities,omitempty"`
	Keywords        []string `bson:"keywords,omitempty"`
	DuplicateOf     string   `bson:"duplicate_of,omitempty"`
	Supersedes      []string `bson:"supersedes,omitempty"`
	RelatedMemories []string `bson:"related_memories,omitempty"`

	ProcessedForDuplicates bool `bson:"processed_for_duplicates"`
	ConsciousProcessed     bool `bson:"conscious_processed"`

	NoveltyScore       float64 `bson:"novelty_score"`
	RelevanceScore     float64 `bson:"relevance_score"`
	ActionabilityScore float64 `bson:"actionability_score"`
	ConfidenceScore    float64 `bson:"confidence_score"`

	SchemaVersion int       `bson:"schema_version"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// NewMongoStore dials uri and ensures the weighted text indexes the
// search service relies on exist.
func NewMongoStore(uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("storage: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("storage: mongo ping: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	ltm := s.db.Collection("long_term_memory")
	_, err := ltm.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "summary", Value: "text"}, {Key: "keywords", Value: "text"}},
			Options: options.Index().SetWeights(bson.D{
				{Key: "summary", Value: 10}, {Key: "keywords", Value: 5},
			}).SetName("ltm_text"),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "assistant_id", Value: 1}, {Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "classification", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("storage: mongo indexes: %w", err)
	}

	stm := s.db.Collection("short_term_memory")
	_, err = stm.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "assistant_id", Value: 1}, {Key: "session_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("storage: mongo indexes: %w", err)
	}

	ch := s.db.Collection("chat_history")
	_, err = ch.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "assistant_id", Value: 1}, {Key: "session_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("storage: mongo indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) RecordChat(ctx context.Context, c ChatHistory) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	doc := chatHistoryDoc{
		ID: c.ID, UserID: c.UserID, AssistantID: c.AssistantID, SessionID: c.SessionID,
		UserInput: c.UserInput, AssistantResp: c.AssistantResp, Model: c.Model,
		Metadata: c.Metadata, CreatedAt: c.CreatedAt,
	}
	_, err := s.db.Collection("chat_history").InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("storage: mongo record chat: %w", err)
	}
	return nil
}

func (s *MongoStore) RecentChats(ctx context.Context, userID, assistantID, sessionID string, n int) ([]ChatHistory, error) {
	filter := bson.D{{Key: "user_id", Value: userID}, {Key: "assistant_id", Value: assistantID}, {Key: "session_id", Value: sessionID}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(n))
	cur, err := s.db.Collection("chat_history").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: mongo recent chats: %w", err)
	}
	defer cur.Close(ctx)

	var docs []chatHistoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("storage: mongo decode chats: %w", err)
	}

	out := make([]ChatHistory, len(docs))
	for i, d := range docs {
		out[len(docs)-1-i] = ChatHistory{
			ID: d.ID, UserID: d.UserID, AssistantID: d.AssistantID, SessionID: d.SessionID,
			UserInput: d.UserInput, AssistantResp: d.AssistantResp, Model: d.Model,
			Metadata: d.Metadata, CreatedAt: d.CreatedAt,
		}
	}
	return out, nil
}

func (s *MongoStore) PutShortTerm(ctx context.Context, m ShortTermMemory) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	doc := shortTermDoc{
		ID: m.ID, UserID: m.UserID, AssistantID: m.AssistantID, SessionID: m.SessionID,
		ChatID: m.ChatID, Content: m.Content, Category: m.Category, PromotedFrom: m.PromotedFrom,
		Importance: m.Importance, IsPermanentContext: m.IsPermanentContext,
		CreatedAt: m.CreatedAt, ExpiresAt: m.ExpiresAt,
	}
	_, err := s.db.Collection("short_term_memory").ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: m.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("storage: mongo put short-term: %w", err)
	}
	return nil
}

// ShortTerm returns the session's working set, expiry-filtered and
// ordered by importance then recency, mirroring SQLStore.ShortTerm.
func (s *MongoStore) ShortTerm(ctx context.Context, userID, assistantID, sessionID string) ([]ShortTermMemory, error) {
	filter := bson.D{
		{Key: "user_id", Value: userID},
		{Key: "assistant_id", Value: assistantID},
		{Key: "session_id", Value: sessionID},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "is_permanent_context", Value: true}},
			bson.D{{Key: "expires_at", Value: bson.D{{Key: "$exists", Value: false}}}},
			bson.D{{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: time.Now()}}}},
		}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "importance", Value: -1}, {Key: "created_at", Value: -1}})
	cur, err := s.db.Collection("short_term_memory").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: mongo short-term: %w", err)
	}
	defer cur.Close(ctx)

	var docs []shortTermDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("storage: mongo decode short-term: %w", err)
	}
	out := make([]ShortTermMemory, len(docs))
	for i, d := range docs {
		out[i] = ShortTermMemory{
			ID: d.ID, UserID: d.UserID, AssistantID: d.AssistantID, SessionID: d.SessionID,
			ChatID: d.ChatID, Content: d.Content, Category: d.Category, PromotedFrom: d.PromotedFrom,
			Importance: d.Importance, IsPermanentContext: d.IsPermanentContext,
			CreatedAt: d.CreatedAt, ExpiresAt: d.ExpiresAt,
		}
	}
	return out, nil
}

func (s *MongoStore) EvictShortTerm(ctx context.Context, userID, assistantID, sessionID, id string) error {
	var filter bson.D
	if id != "" {
		filter = bson.D{{Key: "user_id", Value: userID}, {Key: "assistant_id", Value: assistantID}, {Key: "_id", Value: id}}
	} else {
		filter = bson.D{{Key: "user_id", Value: userID}, {Key: "assistant_id", Value: assistantID}, {Key: "session_id", Value: sessionID}}
	}
	_, err := s.db.Collection("short_term_memory").DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("storage: mongo evict short-term: %w", err)
	}
	return nil
}

func (s *MongoStore) PutLongTerm(ctx context.Context, m LongTermMemory) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.SchemaVersion == 0 {
		m.SchemaVersion = SchemaVersion
	}
	doc := fromLongTerm(m)
	_, err := s.db.Collection("long_term_memory").ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: m.ID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("storage: mongo put long-term: %w", err)
	}
	return nil
}

func fromLongTerm(m LongTermMemory) longTermDoc {
	return longTermDoc{
		ID: m.ID, UserID: m.UserID, AssistantID: m.AssistantID, SessionID: m.SessionID, ChatID: m.ChatID,
		Summary: m.Summary, Category: m.Category, Importance: m.Importance,
		Classification: m.Classification, MemoryImportance: m.MemoryImportance, Topic: m.Topic,
		IsUserContext: m.IsUserContext, IsPreference: m.IsPreference, IsSkillKnowledge: m.IsSkillKnowledge,
		IsCurrentProject: m.IsCurrentProject, PromotionEligible: m.PromotionEligible,
		Entities: m.Entities, Keywords: m.Keywords, DuplicateOf: m.DuplicateOf,
		Supersedes: m.Supersedes, RelatedMemories: m.RelatedMemories,
		ProcessedForDuplicates: m.ProcessedForDuplicates, ConsciousProcessed: m.ConsciousProcessed,
		NoveltyScore: m.NoveltyScore, RelevanceScore: m.RelevanceScore,
		ActionabilityScore: m.ActionabilityScore, ConfidenceScore: m.ConfidenceScore,
		SchemaVersion: m.SchemaVersion, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func toLongTerm(d longTermDoc) LongTermMemory {
	return LongTermMemory{
		ID: d.ID, UserID: d.UserID, AssistantID: d.AssistantID, SessionID: d.SessionID, ChatID: d.ChatID,
		Summary: d.Summary, Category: d.Category, Importance: d.Importance,
		Classification: d.Classification, MemoryImportance: d.MemoryImportance, Topic: d.Topic,
		IsUserContext: d.IsUserContext, IsPreference: d.IsPreference, IsSkillKnowledge: d.IsSkillKnowledge,
		IsCurrentProject: d.IsCurrentProject, PromotionEligible: d.PromotionEligible,
		Entities: d.Entities, Keywords: d.Keywords, DuplicateOf: d.DuplicateOf,
		Supersedes: d.Supersedes, RelatedMemories: d.RelatedMemories,
		ProcessedForDuplicates: d.ProcessedForDuplicates, ConsciousProcessed: d.ConsciousProcessed,
		NoveltyScore: d.NoveltyScore, RelevanceScore: d.RelevanceScore,
		ActionabilityScore: d.ActionabilityScore, ConfidenceScore: d.ConfidenceScore,
		SchemaVersion: d.SchemaVersion, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

// assistantFilter matches documents for assistantID OR documents whose
// assistant_id is absent/empty, mirroring the SQL NULL-sharing rule.
func assistantFilter(assistantID string) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "assistant_id", Value: assistantID}},
		bson.D{{Key: "assistant_id", Value: bson.D{{Key: "$in", Value: bson.A{"", nil}}}}},
	}}}
}

func (s *MongoStore) GetLongTerm(ctx context.Context, userID, assistantID, id string) (LongTermMemory, error) {
	filter := bson.D{{Key: "user_id", Value: userID}, {Key: "_id", Value: id}, {Key: "$and", Value: bson.A{assistantFilter(assistantID)}}}
	var d longTermDoc
	err := s.db.Collection("long_term_memory").FindOne(ctx, filter).Decode(&d)
	if err != nil {
		return LongTermMemory{}, fmt.Errorf("storage: mongo get long-term: %w", err)
	}
	return toLongTerm(d), nil
}

func (s *MongoStore) ListLongTerm(ctx context.Context, userID, assistantID, category string, limit int) ([]LongTermMemory, error) {
	filter := bson.D{{Key: "user_id", Value: userID}, {Key: "$and", Value: bson.A{assistantFilter(assistantID)}}}
	if category != "" {
		filter = append(filter, bson.E{Key: "category", Value: category})
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cur, err := s.db.Collection("long_term_memory").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: mongo list long-term: %w", err)
	}
	defer cur.Close(ctx)

	var docs []longTermDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("storage: mongo decode long-term: %w", err)
	}
	out := make([]LongTermMemory, len(docs))
	for i, d := range docs {
		out[i] = toLongTerm(d)
	}
	return out, nil
}

// ListLongTermByClassification returns every long-term memory for
// userID matching classification, across every assistant.
func (s *MongoStore) ListLongTermByClassification(ctx context.Context, userID, classification string, limit int) ([]LongTermMemory, error) {
	if limit <= 0 {
		limit = 100
	}
	filter := bson.D{{Key: "user_id", Value: userID}, {Key: "classification", Value: classification}}
	opts := options.Find().SetSort(bson.D{{Key: "importance", Value: -1}, {Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cur, err := s.db.Collection("long_term_memory").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: mongo list long-term by classification: %w", err)
	}
	defer cur.Close(ctx)

	var docs []longTermDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("storage: mongo decode long-term: %w", err)
	}
	out := make([]LongTermMemory, len(docs))
	for i, d := range docs {
		out[i] = toLongTerm(d)
	}
	return out, nil
}

// MarkConsciousProcessed flips conscious_processed without touching
// any other field.
func (s *MongoStore) MarkConsciousProcessed(ctx context.Context, userID, id string) error {
	_, err := s.db.Collection("long_term_memory").UpdateOne(ctx,
		bson.D{{Key: "user_id", Value: userID}, {Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "conscious_processed", Value: true}}}})
	if err != nil {
		return fmt.Errorf("storage: mongo mark conscious processed: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteLongTerm(ctx context.Context, userID, assistantID, id string) error {
	filter := bson.D{{Key: "user_id", Value: userID}, {Key: "_id", Value: id}, {Key: "$and", Value: bson.A{assistantFilter(assistantID)}}}
	_, err := s.db.Collection("long_term_memory").DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("storage: mongo delete long-term: %w", err)
	}
	return nil
}

// SearchLongTerm uses MongoDB's weighted $text index, scored and
// sorted via the textScore projection, mirroring the ranked-hit shape
// the SQL backends return. Hits with no $text match at all fall back
// to a case-insensitive regex scan with the fixed LIKE-fallback score.
func (s *MongoStore) SearchLongTerm(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}
	filter := bson.D{
		{Key: "user_id", Value: q.UserID},
		{Key: "$and", Value: bson.A{assistantFilter(q.AssistantID)}},
		{Key: "$text", Value: bson.D{{Key: "$search", Value: q.Text}}},
	}
	if q.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: q.Category})
	}

	opts := options.Find().
		SetProjection(bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}}}).
		SetSort(bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}}}).
		SetLimit(int64(q.Limit))

	cur, err := s.db.Collection("long_term_memory").Find(ctx, filter, opts)
	if err != nil {
		return s.searchRegexFallback(ctx, q)
	}
	defer cur.Close(ctx)

	var out []SearchHit
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			continue
		}
		score, _ := raw["score"].(float64)
		var d longTermDoc
		b, _ := bson.Marshal(raw)
		_ = bson.Unmarshal(b, &d)
		out = append(out, SearchHit{Memory: toLongTerm(d), Score: score, Strategy: "mongo_text"})
	}
	if err := cur.Err(); err != nil {
		return out, err
	}
	if len(out) == 0 {
		return s.searchRegexFallback(ctx, q)
	}
	return out, nil
}

func (s *MongoStore) searchRegexFallback(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	filter := bson.D{
		{Key: "user_id", Value: q.UserID},
		{Key: "$and", Value: bson.A{assistantFilter(q.AssistantID)}},
		{Key: "summary", Value: bson.D{{Key: "$regex", Value: q.Text}, {Key: "$options", Value: "i"}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(q.Limit))
	cur, err := s.db.Collection("long_term_memory").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("storage: mongo regex fallback: %w", err)
	}
	defer cur.Close(ctx)

	var docs []longTermDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("storage: mongo decode regex fallback: %w", err)
	}
	out := make([]SearchHit, len(docs))
	for i, d := range docs {
		out[i] = SearchHit{Memory: toLongTerm(d), Score: 0.4, Strategy: "mongo_text_like_fallback"}
	}
	return out, nil
}

func (s *MongoStore) ClearAll(ctx context.Context, userID, assistantID, sessionID string) error {
	for _, coll := range []string{"chat_history", "short_term_memory", "long_term_memory"} {
		var filter bson.D
		if coll == "long_term_memory" {
			filter = bson.D{{Key: "user_id", Value: userID}, {Key: "$and", Value: bson.A{assistantFilter(assistantID)}}}
		} else {
			filter = bson.D{{Key: "user_id", Value: userID}, {Key: "assistant_id", Value: assistantID}}
			if sessionID != "" {
				filter = append(filter, bson.E{Key: "session_id", Value: sessionID})
			}
		}
		if _, err := s.db.Collection(coll).DeleteMany(ctx, filter); err != nil {
			return fmt.Errorf("storage: mongo clear %s: %w", coll, err)
		}
	}
	return nil
}

func (s *MongoStore) Stats(ctx context.Context, userID, assistantID string) (Stats, error) {
	var st Stats
	filter := bson.D{{Key: "user_id", Value: userID}, {Key: "assistant_id", Value: assistantID}}

	chatCount, err := s.db.Collection("chat_history").CountDocuments(ctx, filter)
	if err != nil {
		return st, fmt.Errorf("storage: mongo stats: %w", err)
	}
	stmCount, err := s.db.Collection("short_term_memory").CountDocuments(ctx, filter)
	if err != nil {
		return st, fmt.Errorf("storage: mongo stats: %w", err)
	}
	ltmFilter := bson.D{{Key: "user_id", Value: userID}, {Key: "$and", Value: bson.A{assistantFilter(assistantID)}}}
	ltmCount, err := s.db.Collection("long_term_memory").CountDocuments(ctx, ltmFilter)
	if err != nil {
		return st, fmt.Errorf("storage: mongo stats: %w", err)
	}
	st.ChatCount, st.ShortTermCount, st.LongTermCount = chatCount, stmCount, ltmCount

	// Estimate the byte size from the long-term summaries, as the SQL
	// backend does.
	sizePipeline := mongo.Pipeline{
		{{Key: "$match", Value: ltmFilter}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "bytes", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$strLenBytes", Value: "$summary"}}}}}}}},
	}
	if cur, err := s.db.Collection("long_term_memory").Aggregate(ctx, sizePipeline); err == nil {
		var sums []struct {
			Bytes int64 `bson:"bytes"`
		}
		if err := cur.All(ctx, &sums); err == nil && len(sums) > 0 {
			st.ApproxBytes = sums[0].Bytes
		}
	}
	return st, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
