package grpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"medialib/internal/characters"
	"medialib/internal/library"
	"medialib/internal/listing"
	"medialib/internal/media"
	"medialib/internal/metrics"
	"medialib/pkg/search"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// Server answers Search requests of the form
//
//	{"query": "...", "context": "media|character|library",
//	 "sort": "...", "order": "asc|desc", "page": 1, "page_size": 20}
//
// Library searches need an "authorization: Bearer <token>" metadata entry.
type Server struct {
	Media      *media.Repo
	Characters *characters.Repo
	Library    *library.Repo
	Tokens     TokenVerifier
}

func NewServer(m *media.Repo, c *characters.Repo, l *library.Repo, tokens TokenVerifier) *Server {
	return &Server{Media: m, Characters: c, Library: l, Tokens: tokens}
}

func (s *Server) Search(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	f := req.GetFields()

	sctx, ok := search.ParseContext(f["context"].GetStringValue())
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "context must be media, character or library")
	}

	parsed := search.Parse(f["query"].GetStringValue(), sctx)
	params := search.ToParams(parsed.Filters, &search.Sort{
		Field: strings.TrimSpace(f["sort"].GetStringValue()),
		Order: strings.TrimSpace(f["order"].GetStringValue()),
	})
	setInt(params, search.ParamPage, f["page"])
	setInt(params, search.ParamPageSize, f["page_size"])

	var (
		items   any
		total   int
		page    listing.Page
		applied []search.Key
	)
	switch sctx {
	case search.ContextMedia:
		res, err := s.Media.List(ctx, params)
		if err != nil {
			log.Error("media search: %v", err)
			return nil, status.Error(codes.Internal, "search failed")
		}
		items, total, page, applied = res.Items, res.Total, res.Page, res.Applied
	case search.ContextCharacter:
		res, err := s.Characters.List(ctx, params)
		if err != nil {
			log.Error("character search: %v", err)
			return nil, status.Error(codes.Internal, "search failed")
		}
		items, total, page, applied = res.Items, res.Total, res.Page, res.Applied
	case search.ContextLibrary:
		userID, err := s.user(ctx)
		if err != nil {
			return nil, err
		}
		res, err := s.Library.List(ctx, userID, params)
		if err != nil {
			log.Error("library search: %v", err)
			return nil, status.Error(codes.Internal, "search failed")
		}
		items, total, page, applied = res.Items, res.Total, res.Page, res.Applied
	}
	metrics.ObserveSearch(string(sctx), applied)

	out, err := toStruct(map[string]any{
		"query":       search.ToQuery(params),
		"context":     string(sctx),
		"filters":     parsed.Filters,
		"chips":       parsed.Chips(),
		"params":      flatten(params),
		"items":       items,
		"total":       total,
		"page":        page.Number,
		"page_size":   page.Size,
		"total_pages": listing.TotalPages(total, page.Size),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode failed")
	}
	return out, nil
}

func (s *Server) user(ctx context.Context) (string, error) {
	if s.Tokens == nil {
		return "", status.Error(codes.Unauthenticated, "library search disabled")
	}
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get("authorization")
	if len(vals) == 0 || !strings.HasPrefix(vals[0], "Bearer ") {
		return "", status.Error(codes.Unauthenticated, "missing bearer token")
	}
	userID, err := s.Tokens.VerifyToken(ctx, strings.TrimPrefix(vals[0], "Bearer "))
	if err != nil {
		return "", status.Error(codes.Unauthenticated, "invalid token")
	}
	return userID, nil
}

func setInt(v url.Values, param string, val *structpb.Value) {
	if val == nil {
		return
	}
	if n := int(val.GetNumberValue()); n > 0 {
		v.Set(param, strconv.Itoa(n))
	}
}

func flatten(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k := range v {
		out[k] = v.Get(k)
	}
	return out
}

// toStruct goes through JSON so models keep their json tags.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return structpb.NewStruct(m)
}
