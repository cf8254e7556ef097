package factory

import (
	"fmt"

	"github.com/s1f10230230/credit-visual-sub000/internal/classifier"
	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/domains"
	"github.com/s1f10230230/credit-visual-sub000/internal/enrich"
	"github.com/s1f10230230/credit-visual-sub000/internal/gate"
	"github.com/s1f10230230/credit-visual-sub000/internal/mimetext"
	"github.com/s1f10230230/credit-visual-sub000/internal/query"
	"github.com/s1f10230230/credit-visual-sub000/internal/utils"
	"go.uber.org/zap"
)

// PipelineFactory creates the pipeline stages from configuration
type PipelineFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *PipelineFactory {
	return &PipelineFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateQueryBuilder creates the search query builder
func (f *PipelineFactory) CreateQueryBuilder() *query.Builder {
	qc := f.cfg.GetQuery()
	return query.NewBuilder(qc.Keywords, qc.Domains)
}

// CreateGate creates the metadata gate. Without gate.allow_domains the issuer and
// trusted domains are allowed.
func (f *PipelineFactory) CreateGate() *gate.Gate {
	gc := f.cfg.GetGate()
	allow := gc.AllowDomains
	if len(allow) == 0 {
		allow = f.issuerAllowList()
	}
	return gate.New(gate.Config{
		BlockDomains:    gc.BlockDomains,
		AllowDomains:    allow,
		PromotionsLabel: gc.PromotionsLabel,
	}, f.logger.Named("gate"))
}

func (f *PipelineFactory) issuerAllowList() []string {
	tc := f.cfg.GetTrust()
	issuers := domains.ParseIssuers(tc.IssuerDomains)
	if len(issuers) == 0 {
		issuers = domains.DefaultIssuers
	}
	allow := make([]string, 0, len(issuers)+len(tc.TrustedDomains))
	for _, is := range issuers {
		allow = append(allow, is.Domain)
	}
	return append(allow, tc.TrustedDomains...)
}

// CreateDecoder creates the body decoder
func (f *PipelineFactory) CreateDecoder() *mimetext.Decoder {
	return mimetext.NewDecoder(f.logger.Named("decoder"), f.textProcessor)
}

// CreateClassifier creates the classifier with the configured profile and trust lists
func (f *PipelineFactory) CreateClassifier() (*classifier.Classifier, error) {
	cc := f.cfg.GetClassifier()
	profile, err := classifier.ProfileByName(cc.Profile)
	if err != nil {
		return nil, err
	}

	tc := f.cfg.GetTrust()
	trust := domains.NewTrust(domains.ParseIssuers(tc.IssuerDomains), tc.TrustedDomains, nil, f.logger.Named("trust"))

	f.logger.Info("Classifier configured",
		zap.String("profile", profile.Name),
		zap.Int("promo_threshold", cc.PromoThreshold))

	return classifier.New(trust, profile, classifier.WithPromoThreshold(cc.PromoThreshold)), nil
}

// CreateDictionary loads the merchant dictionary, merging a configured file over the built-in entries
func (f *PipelineFactory) CreateDictionary() (*enrich.Dictionary, error) {
	path := f.cfg.GetEnrich().DictionaryPath
	if path == "" {
		return enrich.DefaultDictionary(), nil
	}

	dict, err := enrich.LoadDictionary(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load merchant dictionary: %w", err)
	}
	f.logger.Info("Loaded merchant dictionary", zap.String("path", path), zap.Int("entries", dict.Len()))
	return dict, nil
}

// CreateEnricher creates the merchant enricher. categorizer may be nil.
func (f *PipelineFactory) CreateEnricher(dict *enrich.Dictionary, categorizer core.MerchantCategorizer) *enrich.Enricher {
	return enrich.New(dict, f.cfg.GetEnrich().MinConfidence, categorizer, f.logger.Named("enrich"))
}

// GetPipelineOptions returns the run defaults
func (f *PipelineFactory) GetPipelineOptions() core.PipelineOptions {
	pc := f.cfg.GetPipeline()
	return core.PipelineOptions{
		LookbackDays:   pc.LookbackDays,
		MaxPages:       pc.MaxPages,
		MaxBodyFetches: pc.MaxBodyFetches,
		Concurrency:    pc.Concurrency,
		LedgerTTL:      f.cfg.GetLedger().TTL,
	}
}
