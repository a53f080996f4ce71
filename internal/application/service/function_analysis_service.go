package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"luascan/internal/application/common"
	"luascan/internal/application/common/logging"
	"luascan/internal/application/common/retry"
	"luascan/internal/application/common/slogger"
	"luascan/internal/application/dto"
	"luascan/internal/domain/entity"
	"luascan/internal/domain/errors/domain"
	domainservice "luascan/internal/domain/service"
	"luascan/internal/domain/valueobject"
	"luascan/internal/port/inbound"
	"luascan/internal/port/outbound"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SaveOperation names repository saves in logs and retry metrics.
const SaveOperation = "save_document"

// ErrIndexingDisabled is returned by index operations when no repository is configured.
var ErrIndexingDisabled = errors.New("function indexing is not configured")

// FunctionAnalysisConfig holds the service limits.
type FunctionAnalysisConfig struct {
	MaxSourceBytes int // 0 disables the limit
	Concurrency    int // values below 1 mean sequential
}

// FunctionAnalysisService scans Lua sources and optionally indexes the results.
type FunctionAnalysisService struct {
	config     FunctionAnalysisConfig
	parser     *domainservice.LuaFunctionParser
	loader     outbound.SourceLoader
	repository outbound.FunctionIndexRepository
	publisher  outbound.FunctionEventPublisher
	treeCache  outbound.FunctionTreeCache
	metrics    *ScanMetrics
	savePolicy retry.Policy
	saveCheck  retry.Classifier
	saveRetry  *retry.Executor
	now        func() time.Time
}

var _ inbound.FunctionAnalysisService = (*FunctionAnalysisService)(nil)

// FunctionAnalysisOption configures a FunctionAnalysisService.
type FunctionAnalysisOption func(*FunctionAnalysisService)

// WithFunctionIndex enables IndexFiles and LookupGlobalFunction. publisher may be nil.
func WithFunctionIndex(
	repository outbound.FunctionIndexRepository,
	publisher outbound.FunctionEventPublisher,
) FunctionAnalysisOption {
	return func(s *FunctionAnalysisService) {
		s.repository = repository
		s.publisher = publisher
	}
}

// WithTreeCache reuses the function tree of sources already scanned.
func WithTreeCache(cache outbound.FunctionTreeCache) FunctionAnalysisOption {
	return func(s *FunctionAnalysisService) {
		s.treeCache = cache
	}
}

// WithScanMetrics records OpenTelemetry metrics for every scan.
func WithScanMetrics(metrics *ScanMetrics) FunctionAnalysisOption {
	return func(s *FunctionAnalysisService) {
		s.metrics = metrics
	}
}

// WithSaveRetry retries repository saves on policy. Failures are retried
// when classifier accepts them; nil keeps retry.IsTransient.
func WithSaveRetry(policy retry.Policy, classifier retry.Classifier) FunctionAnalysisOption {
	return func(s *FunctionAnalysisService) {
		s.savePolicy = policy
		s.saveCheck = classifier
	}
}

// WithClock overrides the scan timestamp source.
func WithClock(now func() time.Time) FunctionAnalysisOption {
	return func(s *FunctionAnalysisService) {
		s.now = now
	}
}

// NewFunctionAnalysisService creates a new FunctionAnalysisService.
func NewFunctionAnalysisService(
	config FunctionAnalysisConfig,
	loader outbound.SourceLoader,
	opts ...FunctionAnalysisOption,
) *FunctionAnalysisService {
	if loader == nil {
		panic("loader cannot be nil")
	}

	s := &FunctionAnalysisService{
		config:     config,
		parser:     domainservice.NewLuaFunctionParser(),
		loader:     loader,
		savePolicy: retry.DefaultPolicy(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.saveRetry = retry.NewExecutor(s.savePolicy,
		retry.WithClassifier(s.saveCheck),
		retry.WithRetryHook(func(ctx context.Context, attempt retry.Attempt) {
			s.metrics.RecordSaveRetry(ctx, attempt.Operation)
		}),
	)
	return s
}

// AnalyzeSource scans one source and builds its document. A nil content is
// ErrInvalidInput and content above the size limit is ErrSourceTooLarge;
// unterminated functions are reported in the document, not as errors.
func (s *FunctionAnalysisService) AnalyzeSource(
	ctx context.Context,
	path string,
	content []byte,
) (*dto.LuaDocument, error) {
	start := time.Now()
	scanID := uuid.New()
	ctx = logging.WithScanID(logging.WithFilePath(ctx, path), scanID.String())

	source, err := valueobject.NewLuaSource(path, content, s.config.MaxSourceBytes)
	if err != nil {
		s.metrics.RecordScan(ctx, scanResult(err), time.Since(start), nil)
		slogger.Warn(ctx, "Rejected Lua source", slogger.Fields{"error": err.Error()})
		return nil, err
	}

	tree := s.parseTree(ctx, source)
	globals := s.parser.GlobalFunctions(tree)
	diagnostics := domainservice.Diagnostics(tree)

	doc := dto.NewLuaDocument(dto.DocumentInput{
		ScanID:      scanID,
		Source:      source,
		Tree:        tree,
		Globals:     globals,
		Diagnostics: diagnostics,
		IsGlobal:    domainservice.IsGlobal,
		ScannedAt:   s.now(),
	})

	duration := time.Since(start)
	s.metrics.RecordScan(ctx, ResultSuccess, duration, doc)

	for _, diagnostic := range diagnostics {
		slogger.Warn(ctx, "Unterminated function", slogger.Fields{
			"offset":  diagnostic.Position,
			"message": diagnostic.Message,
		})
	}
	slogger.Debug(ctx, "Scanned Lua source", slogger.Fields{
		"size_bytes":       doc.SizeBytes,
		"total_functions":  doc.Stats.TotalFunctions,
		"global_functions": doc.Stats.GlobalFunctions,
		"duration":         duration.String(),
	})

	return doc, nil
}

// parseTree scans source, going through the tree cache when one is set.
func (s *FunctionAnalysisService) parseTree(ctx context.Context, source valueobject.LuaSource) *entity.FunctionTree {
	if s.treeCache == nil {
		return s.parser.ParseFunctions(source.Content())
	}

	hash := source.Hash()
	if tree, ok := s.treeCache.Get(ctx, hash); ok {
		return tree
	}
	tree := s.parser.ParseFunctions(source.Content())
	s.treeCache.Put(ctx, hash, tree)
	return tree
}

// AnalyzeFiles loads and scans every path, at most Concurrency at a time.
// Documents are returned in the order of paths. The first failure cancels the
// remaining work.
func (s *FunctionAnalysisService) AnalyzeFiles(ctx context.Context, paths []string) ([]*dto.LuaDocument, error) {
	docs := make([]*dto.LuaDocument, len(paths))
	if len(paths) == 0 {
		return docs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.config.Concurrency, 1))

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			content, err := s.loader.Load(gctx, path)
			if err != nil {
				return common.WrapPathError(common.OpLoadSource, path, err)
			}

			doc, err := s.AnalyzeSource(gctx, path, content)
			if err != nil {
				return common.WrapPathError(common.OpAnalyzeSource, path, err)
			}
			docs[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slogger.Info(ctx, "Analyzed Lua files", slogger.Fields{"file_count": len(paths)})
	return docs, nil
}

// IndexFiles analyzes paths and stores each document. A failed save fails the
// call; a failed event publish is only logged.
func (s *FunctionAnalysisService) IndexFiles(ctx context.Context, paths []string) ([]*dto.LuaDocument, error) {
	if s.repository == nil {
		return nil, ErrIndexingDisabled
	}

	docs, err := s.AnalyzeFiles(ctx, paths)
	if err != nil {
		return nil, err
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docCtx := logging.WithScanID(logging.WithFilePath(ctx, doc.FilePath), doc.ScanID.String())
		err := s.saveRetry.Execute(docCtx, SaveOperation, func(ctx context.Context) error {
			return s.repository.SaveDocument(ctx, doc)
		})
		if err != nil {
			return nil, common.WrapPathError(common.OpSaveDocument, doc.FilePath, err)
		}

		if s.publisher == nil {
			continue
		}
		if err := s.publisher.PublishFunctionsIndexed(docCtx, doc); err != nil {
			slogger.ErrorWithError(docCtx, common.WrapPathError(common.OpPublishEvent, doc.FilePath, err),
				"Failed to publish functions indexed event", nil)
		}
	}

	slogger.Info(ctx, "Indexed Lua files", slogger.Fields{"file_count": len(docs)})
	return docs, nil
}

// LookupGlobalFunction returns the indexed global functions called name.
func (s *FunctionAnalysisService) LookupGlobalFunction(
	ctx context.Context,
	name string,
) ([]outbound.IndexedFunction, error) {
	if s.repository == nil {
		return nil, ErrIndexingDisabled
	}
	if name == "" {
		return nil, fmt.Errorf("function name is empty: %w", domain.ErrInvalidInput)
	}

	functions, err := s.repository.FindGlobalFunctionsByName(ctx, name)
	if err != nil {
		return nil, common.WrapServiceError(common.OpLookupFunctions, err)
	}
	return functions, nil
}
