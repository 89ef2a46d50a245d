package pricing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"goquant/internal/errors"
	"goquant/internal/instrument"
	"goquant/internal/logging"
	"goquant/internal/markets"
	"goquant/internal/provider"
	"goquant/internal/risk"
	"goquant/internal/store"
	"goquant/pkg/utils"
)

// dateMarket is one (pricing date, market) pair requested for a
// priceable within a flush.
type dateMarket struct {
	date   time.Time
	market markets.Market
}

func (dm dateMarket) fingerprint() string {
	return dm.date.Format("2006-01-02") + "@" + dm.market.Fingerprint()
}

// entryCoord addresses one pending entry within a priceable's
// accumulated measure and date/market sets.
type entryCoord struct {
	measureName  string
	dateMarketFP string
}

// perPriceable accumulates, for one priceable within one shape group,
// the set of measures and (date, market) pairs requested for it.
type perPriceable struct {
	priceable   instrument.Priceable
	measures    map[string]risk.Measure
	dateMarkets map[string]dateMarket
	entries     map[entryCoord]*pendingEntry
}

// plannedBatch is one outbound request plus the routing table mapping
// each returned result point back to its pending entry.
type plannedBatch struct {
	req    provider.BatchRequest
	routes map[provider.ResultCoord]*pendingEntry
}

// flush takes the whole pending map, groups it into batches, and
// dispatches each provider's batches. One worker per provider runs when
// several providers participate or the context is async; a lone
// synchronous provider dispatches in-line.
func (pc *PricingContext) flush() {
	pc.mu.Lock()
	taken := pc.pending
	pc.pending = make(map[pendingKey]*pendingEntry)
	pc.mu.Unlock()

	if len(taken) == 0 {
		return
	}

	byProvider := pc.planBatches(taken)

	pc.log.Debug().
		Int("entries", len(taken)).
		Int("providers", len(byProvider)).
		Msg("Dispatching pending risk requests")

	if len(byProvider) > 1 || pc.async {
		var wg conc.WaitGroup
		for name, batches := range byProvider {
			name, batches := name, batches
			wg.Go(func() {
				pc.dispatchProvider(name, batches)
			})
		}
		if pc.async {
			go wg.Wait()
			return
		}
		wg.Wait()
		return
	}

	for name, batches := range byProvider {
		pc.dispatchProvider(name, batches)
	}
}

// planBatches implements the two-stage grouping: entries are grouped by
// provider and request shape (parameters, scenario, location, market
// type), accumulating per priceable the sets of measures and
// (date, market) pairs; each shape group is then partitioned by the exact
// (measures, date/market pairs) tuple so every priceable in a partition
// shares one homogeneous outbound request.
func (pc *PricingContext) planBatches(taken map[pendingKey]*pendingEntry) map[string][]*plannedBatch {
	type shapeGroup struct {
		parameters *risk.Parameters
		scenario   *risk.Scenario
		location   string
		byToken    map[string]*perPriceable
		tokenOrder []string
	}

	shapes := make(map[string]map[string]*shapeGroup) // provider -> shape key -> group
	for _, e := range taken {
		providerName := e.key.Provider
		location := e.key.Market.Location()
		shapeKey := strings.Join([]string{
			e.key.Parameters.Fingerprint(),
			e.key.Scenario.Fingerprint(),
			location,
			e.key.Market.MarketType(),
		}, "|")

		byShape, ok := shapes[providerName]
		if !ok {
			byShape = make(map[string]*shapeGroup)
			shapes[providerName] = byShape
		}
		group, ok := byShape[shapeKey]
		if !ok {
			group = &shapeGroup{
				parameters: e.key.Parameters,
				scenario:   e.key.Scenario,
				location:   location,
				byToken:    make(map[string]*perPriceable),
			}
			byShape[shapeKey] = group
		}

		token := e.priceable.IdentityToken()
		pp, ok := group.byToken[token]
		if !ok {
			pp = &perPriceable{
				priceable:   e.priceable,
				measures:    make(map[string]risk.Measure),
				dateMarkets: make(map[string]dateMarket),
				entries:     make(map[entryCoord]*pendingEntry),
			}
			group.byToken[token] = pp
			group.tokenOrder = append(group.tokenOrder, token)
		}

		dm := dateMarket{date: e.key.PricingDate, market: e.key.Market}
		pp.measures[e.key.Measure.Name] = e.key.Measure
		pp.dateMarkets[dm.fingerprint()] = dm
		pp.entries[entryCoord{e.key.Measure.Name, dm.fingerprint()}] = e
	}

	out := make(map[string][]*plannedBatch)
	for providerName, byShape := range shapes {
		shapeKeys := sortedKeys(byShape)
		for _, shapeKey := range shapeKeys {
			group := byShape[shapeKey]

			// Partition the shape group by the exact tuple of sorted
			// measures and sorted date/market pairs.
			partitions := make(map[string][]*perPriceable)
			var partitionOrder []string
			for _, token := range group.tokenOrder {
				pp := group.byToken[token]
				pk := shapeKey + "||" +
					strings.Join(sortedKeys(pp.measures), ",") + "||" +
					strings.Join(sortedKeys(pp.dateMarkets), ",")
				if _, ok := partitions[pk]; !ok {
					partitionOrder = append(partitionOrder, pk)
				}
				partitions[pk] = append(partitions[pk], pp)
			}

			for _, pk := range partitionOrder {
				members := partitions[pk]
				out[providerName] = append(out[providerName], pc.buildBatch(group.parameters, group.scenario, group.location, members))
			}
		}
	}
	return out
}

// buildBatch assembles one outbound request for priceables sharing an
// identical measure set and date/market set, recording the routing table
// for its result points.
func (pc *PricingContext) buildBatch(parameters *risk.Parameters, scenario *risk.Scenario, location string, members []*perPriceable) *plannedBatch {
	first := members[0]

	measureNames := sortedKeys(first.measures)
	measures := make([]risk.Measure, 0, len(measureNames))
	for _, name := range measureNames {
		measures = append(measures, first.measures[name])
	}

	dmFPs := sortedKeys(first.dateMarkets)
	pairs := make([]provider.DateMarketPair, 0, len(dmFPs))
	dms := make([]dateMarket, 0, len(dmFPs))
	for _, fp := range dmFPs {
		dm := first.dateMarkets[fp]
		dms = append(dms, dm)
		pairs = append(pairs, provider.DateMarketPair{
			PricingDate: dm.date,
			Market:      dm.market.Projection(),
		})
	}

	batch := &plannedBatch{
		req: provider.BatchRequest{
			ID:                       uuid.NewString(),
			Measures:                 measures,
			Parameters:               parameters,
			Scenario:                 scenario.Projection(),
			PricingLocation:          location,
			PricingAndMarketDataAsOf: pairs,
			WaitForResults:           !pc.batch,
			Visible:                  pc.visible,
		},
		routes: make(map[provider.ResultCoord]*pendingEntry),
	}

	for pi, pp := range members {
		batch.req.Positions = append(batch.req.Positions, provider.Position{
			Instrument: pp.priceable.Projection(),
			Quantity:   pp.priceable.Quantity(),
		})
		for mi, name := range measureNames {
			for di, dm := range dms {
				entry := pp.entries[entryCoord{name, dm.fingerprint()}]
				if entry == nil {
					continue
				}
				batch.routes[provider.ResultCoord{Position: pi, Measure: mi, DateMarket: di}] = entry
			}
		}
	}
	return batch
}

// dispatchProvider sends one provider's batches and resolves their
// futures. Any transport failure during dispatch or polling fails every
// future in the provider's batches identically.
func (pc *PricingContext) dispatchProvider(name string, batches []*plannedBatch) {
	start := time.Now()
	positions := 0
	for _, b := range batches {
		positions += len(b.req.Positions)
	}

	failAll := func(err error) {
		derr := errors.NewDispatchError(name, len(batches), err)
		for _, b := range batches {
			for _, e := range b.routes {
				_ = e.future.Fail(derr)
			}
		}
		logging.LogDispatch(pc.log, name, len(batches), positions, time.Since(start), err)
	}

	prov, err := pc.registry.Get(name)
	if err != nil {
		failAll(err)
		return
	}

	byID := make(map[string]*plannedBatch, len(batches))
	reqs := make([]provider.BatchRequest, 0, len(batches))
	for _, b := range batches {
		byID[b.req.ID] = b
		reqs = append(reqs, b.req)
	}

	ctx := context.Background()
	results, err := prov.CalcMulti(ctx, reqs)
	if err != nil {
		failAll(err)
		return
	}

	pendingReqs := make(map[string]provider.BatchRequest)
	for _, res := range results {
		b, ok := byID[res.RequestID]
		if !ok {
			continue
		}
		if res.Pending {
			pendingReqs[res.RequestID] = b.req
			continue
		}
		pc.routeResult(name, b, res)
	}

	if len(pendingReqs) == 0 {
		logging.LogDispatch(pc.log, name, len(batches), positions, time.Since(start), nil)
		return
	}

	err = utils.PollUntil(ctx, pc.pollInterval, pc.timeout, errors.ErrPollTimeout, func() (bool, error) {
		done, pollErr := prov.GetResults(ctx, pendingReqs)
		if pollErr != nil {
			return false, pollErr
		}
		for id, res := range done {
			pc.routeResult(name, byID[id], res)
			delete(pendingReqs, id)
		}
		return len(pendingReqs) == 0, nil
	})
	if err != nil {
		failAll(err)
		return
	}
	logging.LogDispatch(pc.log, name, len(batches), positions, time.Since(start), nil)
}

// routeResult resolves one batch's futures from its returned points,
// caching and journaling on the way. Entries the provider omitted fail
// with ErrResultMissing.
func (pc *PricingContext) routeResult(providerName string, b *plannedBatch, res provider.BatchResult) {
	var records []store.ResultRecord
	for coord, entry := range b.routes {
		r, ok := res.Points[coord]
		if !ok {
			_ = entry.future.Fail(errors.Wrapf(errors.ErrResultMissing,
				"%s %s", entry.priceable.InstrumentType(), entry.key.Measure.Name))
			continue
		}
		if pc.cacheResults {
			pc.cache.Put(entry.priceable.IdentityToken(), entry.key, r)
		}
		if pc.journal != nil {
			records = append(records, resultRecord(providerName, entry, r))
		}
		_ = entry.future.Resolve(r)
	}

	if len(records) > 0 {
		if err := pc.journal.Record(context.Background(), records); err != nil {
			pc.log.Warn().Err(err).Msg("Failed to journal results")
		}
	}
}

func resultRecord(providerName string, entry *pendingEntry, r risk.Result) store.ResultRecord {
	rec := store.ResultRecord{
		InstrumentToken: entry.priceable.IdentityToken(),
		InstrumentType:  entry.priceable.InstrumentType(),
		Provider:        providerName,
		Measure:         entry.key.Measure.Name,
		PricingDate:     entry.key.PricingDate,
		MarketType:      entry.key.Market.MarketType(),
		Quantity:        entry.priceable.Quantity(),
		ComputedAt:      time.Now(),
	}
	switch v := r.(type) {
	case risk.ScalarResult:
		rec.Value = v.Value()
	case risk.ErrorResult:
		rec.IsError = true
		rec.ErrorMessage = v.Message
	default:
		rec.ValueText = r.String()
	}
	return rec
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
