package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"rentathing/models"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

// FirestoreStore keeps conversations in the "conversations" collection and
// each conversation's messages in its "messages" subcollection.
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStore wraps a Firestore client.
func NewFirestoreStore(client *firestore.Client, logger *zap.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, logger: logger}
}

type messageDoc struct {
	Sender      string    `firestore:"sender"`
	Text        string    `firestore:"text"`
	Type        string    `firestore:"type,omitempty"`
	BookingID   string    `firestore:"bookingId,omitempty"`
	Event       string    `firestore:"event,omitempty"`
	StartDate   string    `firestore:"startDate,omitempty"`
	EndDate     string    `firestore:"endDate,omitempty"`
	PricePerDay *float64  `firestore:"pricePerDay,omitempty"`
	RenteeEmail string    `firestore:"renteeEmail,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
}

type conversationDoc struct {
	ListingID    string    `firestore:"listingId"`
	ListingTitle string    `firestore:"listingTitle"`
	RenterID     string    `firestore:"renterId"`
	RenterEmail  string    `firestore:"renterEmail,omitempty"`
	RenteeID     string    `firestore:"renteeId"`
	RenteeEmail  string    `firestore:"renteeEmail,omitempty"`
	Participants []string  `firestore:"participants"`
	LastMessage  string    `firestore:"lastMessage"`
	UpdatedAt    time.Time `firestore:"updatedAt,serverTimestamp"`
}

func toDoc(m models.Message) messageDoc {
	doc := messageDoc{
		Sender:      m.Sender,
		Text:        m.Text,
		BookingID:   m.BookingID,
		Event:       string(m.Event),
		PricePerDay: m.PricePerDay,
		RenteeEmail: m.RenteeEmail,
	}
	if m.Kind != models.KindPlain {
		doc.Type = string(m.Kind)
	}
	if m.StartDate != nil {
		doc.StartDate = m.StartDate.String()
	}
	if m.EndDate != nil {
		doc.EndDate = m.EndDate.String()
	}
	return doc
}

func fromDoc(id string, doc messageDoc) models.Message {
	m := models.Message{
		ID:          id,
		Sender:      doc.Sender,
		Text:        doc.Text,
		CreatedAt:   doc.CreatedAt,
		Kind:        models.MessageKind(doc.Type),
		BookingID:   doc.BookingID,
		Event:       models.InfoEvent(doc.Event),
		PricePerDay: doc.PricePerDay,
		RenteeEmail: doc.RenteeEmail,
	}
	switch m.Kind {
	case models.KindOffer, models.KindInfo:
	default:
		m.Kind = models.KindPlain
	}
	if d, err := models.ParseDate(doc.StartDate); err == nil && doc.StartDate != "" {
		m.StartDate = &d
	}
	if d, err := models.ParseDate(doc.EndDate); err == nil && doc.EndDate != "" {
		m.EndDate = &d
	}
	return m
}

func (s *FirestoreStore) messages(conversationID string) *firestore.CollectionRef {
	return s.client.Collection(conversationsCollection).Doc(conversationID).Collection(messagesCollection)
}

func (s *FirestoreStore) Append(ctx context.Context, conversationID string, m models.Message) (models.Message, error) {
	ref, _, err := s.messages(conversationID).Add(ctx, toDoc(m))
	if err != nil {
		return models.Message{}, &models.NetworkError{Op: "append message", Err: err}
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		// The write landed; only the read-back failed.
		s.logger.Warn("chat: appended message could not be read back", zap.String("messageID", ref.ID), zap.Error(err))
		m.ID, m.CreatedAt = ref.ID, time.Now().UTC()
	} else {
		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return models.Message{}, fmt.Errorf("decode appended message: %w", err)
		}
		m = fromDoc(ref.ID, doc)
	}
	if err := s.Touch(ctx, conversationID, m.Text); err != nil {
		s.logger.Warn("chat: failed to update conversation preview", zap.String("conversationID", conversationID), zap.Error(err))
	}
	return m, nil
}

func (s *FirestoreStore) List(ctx context.Context, conversationID string) ([]models.Message, error) {
	docs, err := s.messages(conversationID).OrderBy("createdAt", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, &models.NetworkError{Op: "list messages", Err: err}
	}
	return s.decodeAll(docs), nil
}

func (s *FirestoreStore) decodeAll(docs []*firestore.DocumentSnapshot) []models.Message {
	out := make([]models.Message, 0, len(docs))
	for _, d := range docs {
		var doc messageDoc
		if err := d.DataTo(&doc); err != nil {
			s.logger.Warn("chat: skipping undecodable message", zap.String("messageID", d.Ref.ID), zap.Error(err))
			continue
		}
		out = append(out, fromDoc(d.Ref.ID, doc))
	}
	SortMessages(out)
	return out
}

func (s *FirestoreStore) Subscribe(ctx context.Context, conversationID string, onChange func([]models.Message)) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.messages(conversationID).OrderBy("createdAt", firestore.Asc).Snapshots(ctx)
	sub := &firestoreSub{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) {
					s.logger.Error("chat: message subscription ended", zap.String("conversationID", conversationID), zap.Error(err))
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				s.logger.Warn("chat: snapshot read failed", zap.String("conversationID", conversationID), zap.Error(err))
				continue
			}
			onChange(s.decodeAll(docs))
		}
	}()
	return sub, nil
}

type firestoreSub struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Unsubscribe stops the snapshot listener and waits for it to exit.
func (f *firestoreSub) Unsubscribe() {
	f.cancel()
	<-f.done
}

func (s *FirestoreStore) CreateOrGet(ctx context.Context, listingID, listingTitle string, renter, rentee models.Party) (*models.Conversation, error) {
	coll := s.client.Collection(conversationsCollection)
	docs, err := coll.
		Where("listingId", "==", listingID).
		Where("renterId", "==", renter.UserID).
		Where("renteeId", "==", rentee.UserID).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, &models.NetworkError{Op: "find conversation", Err: err}
	}
	if len(docs) > 0 {
		return decodeConversation(docs[0])
	}

	doc := conversationDoc{
		ListingID:    listingID,
		ListingTitle: listingTitle,
		RenterID:     renter.UserID,
		RenterEmail:  renter.Email,
		RenteeID:     rentee.UserID,
		RenteeEmail:  rentee.Email,
		Participants: participants(renter, rentee),
	}
	ref, _, err := coll.Add(ctx, doc)
	if err != nil {
		return nil, &models.NetworkError{Op: "create conversation", Err: err}
	}
	return &models.Conversation{
		ID:           ref.ID,
		ListingID:    doc.ListingID,
		ListingTitle: doc.ListingTitle,
		RenterID:     doc.RenterID,
		RenterEmail:  doc.RenterEmail,
		RenteeID:     doc.RenteeID,
		RenteeEmail:  doc.RenteeEmail,
		Participants: doc.Participants,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	snap, err := s.client.Collection(conversationsCollection).Doc(conversationID).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return nil, models.ErrNotFound
		}
		return nil, &models.NetworkError{Op: "get conversation", Err: err}
	}
	return decodeConversation(snap)
}

func (s *FirestoreStore) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	docs, err := s.client.Collection(conversationsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, &models.NetworkError{Op: "list conversations", Err: err}
	}
	out := make([]models.Conversation, 0, len(docs))
	for _, d := range docs {
		c, err := decodeConversation(d)
		if err != nil {
			s.logger.Warn("chat: skipping undecodable conversation", zap.String("conversationID", d.Ref.ID), zap.Error(err))
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *FirestoreStore) Touch(ctx context.Context, conversationID, lastMessage string) error {
	_, err := s.client.Collection(conversationsCollection).Doc(conversationID).Set(ctx, map[string]interface{}{
		"lastMessage": lastMessage,
		"updatedAt":   firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}

func decodeConversation(snap *firestore.DocumentSnapshot) (*models.Conversation, error) {
	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", snap.Ref.ID, err)
	}
	return &models.Conversation{
		ID:           snap.Ref.ID,
		ListingID:    doc.ListingID,
		ListingTitle: doc.ListingTitle,
		RenterID:     doc.RenterID,
		RenterEmail:  doc.RenterEmail,
		RenteeID:     doc.RenteeID,
		RenteeEmail:  doc.RenteeEmail,
		Participants: doc.Participants,
		LastMessage:  doc.LastMessage,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}
