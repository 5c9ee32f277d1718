package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"medialib/internal/characters"
	"medialib/internal/dbtest"
	"medialib/internal/library"
	"medialib/internal/media"
)

type tokens map[string]string

func (t tokens) VerifyToken(_ context.Context, token string) (string, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.User(t, db, "u1")
	naruto := dbtest.Media(t, db, "Naruto", "tv", "completed", 2002)
	dbtest.Media(t, db, "Boruto: Naruto Next Generations", "tv", "airing", 2017)
	dbtest.Media(t, db, "Naruto Gaiden", "ova", "upcoming", 2023)
	dbtest.Character(t, db, "Itachi Uchiha", naruto)
	dbtest.Entry(t, db, "u1", naruto, "watching", 9)

	srv := NewServer(media.NewRepo(db), characters.NewRepo(db), library.NewRepo(db), tokens{"good": "u1"})
	g := NewGRPCServer(srv)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = g.Serve(lis) }()
	t.Cleanup(g.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func titles(t *testing.T, resp *structpb.Struct, field string) []string {
	t.Helper()
	var out []string
	for _, v := range resp.GetFields()["items"].GetListValue().GetValues() {
		out = append(out, v.GetStructValue().GetFields()[field].GetStringValue())
	}
	return out
}

func TestSearchMedia(t *testing.T) {
	conn := dial(t)

	resp, err := Search(context.Background(), conn, request(t, map[string]any{
		"query": "Naruto -status:completed year:>2010",
		"sort":  "title",
		"order": "asc",
	}))
	require.NoError(t, err)

	f := resp.GetFields()
	assert.Equal(t, []string{"Boruto: Naruto Next Generations", "Naruto Gaiden"}, titles(t, resp, "title"))
	assert.Equal(t, float64(2), f["total"].GetNumberValue())
	assert.Equal(t, "media", f["context"].GetStringValue())
	assert.Equal(t, "title:Naruto year:>2010 -status:completed", f["query"].GetStringValue())
	assert.Equal(t, "2010", f["params"].GetStructValue().GetFields()["year_gt"].GetStringValue())
	assert.Len(t, f["chips"].GetListValue().GetValues(), 3)
}

func TestSearchCharacters(t *testing.T) {
	conn := dial(t)

	resp, err := Search(context.Background(), conn, request(t, map[string]any{
		"query":   "media:naruto",
		"context": "characters",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Itachi Uchiha"}, titles(t, resp, "name"))
}

func TestSearchLibraryNeedsToken(t *testing.T) {
	conn := dial(t)
	req := request(t, map[string]any{"query": "user_score:>8", "context": "library"})

	_, err := Search(context.Background(), conn, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")
	_, err = Search(bad, conn, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	good := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer good")
	resp, err := Search(good, conn, req)
	require.NoError(t, err)
	assert.Equal(t, float64(1), resp.GetFields()["total"].GetNumberValue())
}

func TestSearchBadContext(t *testing.T) {
	conn := dial(t)
	_, err := Search(context.Background(), conn, request(t, map[string]any{"context": "games"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRecoveryInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: SearchMethod}
	_, err := RecoveryInterceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
