package rulelist

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/stdblock/stdblock/rules"
)

// RuleStorage is an abstraction that combines several rule lists.  It can be
// scanned using a [RuleStorageScanner], and it allows retrieving rules by
// their index.
//
// Rules are kept in their serialized form and created lazily, only when
// there's a chance they are needed.  When the blocking engine is initialized
// it scans the lists once to fill up the lookup tables, using rule indexes as
// unique rule identifiers; the rule itself is deserialized on the first
// retrieval and cached.
type RuleStorage struct {
	// cacheMu protects cache.
	cacheMu *sync.RWMutex

	// cache with the rules that were retrieved.
	cache map[int64]*rules.BlockRule

	// listsMap is a map with rule lists.  The map key is the list ID.
	listsMap map[int]RuleList

	// lists is the array of rule lists backing this storage.
	lists []RuleList
}

// NewRuleStorage creates a new instance of the RuleStorage and validates the
// lists specified.
func NewRuleStorage(lists []RuleList) (s *RuleStorage, err error) {
	if lists == nil {
		lists = make([]RuleList, 0)
	}

	listsMap := make(map[int]RuleList, len(lists))
	for i, list := range lists {
		id := list.GetID()
		if _, ok := listsMap[id]; ok {
			return nil, fmt.Errorf("list at index %d: duplicate list id: %d", i, id)
		}

		listsMap[id] = list
	}

	return &RuleStorage{
		cacheMu:  &sync.RWMutex{},
		cache:    map[int64]*rules.BlockRule{},
		listsMap: listsMap,
		lists:    lists,
	}, nil
}

// NewRuleStorageScanner creates a new instance of RuleStorageScanner.  It can
// be used to read and parse all the storage contents.
func (s *RuleStorage) NewRuleStorageScanner() (sc *RuleStorageScanner) {
	var scanners []*RuleScanner
	for _, list := range s.lists {
		scanners = append(scanners, list.NewScanner())
	}

	return &RuleStorageScanner{
		Scanners: scanners,
	}
}

// RetrieveRule looks for the block rule in this storage.  storageIdx is the
// lookup index that you can get from the rule storage scanner.
func (s *RuleStorage) RetrieveRule(storageIdx int64) (r *rules.BlockRule, err error) {
	var ok bool
	func() {
		s.cacheMu.RLock()
		defer s.cacheMu.RUnlock()

		r, ok = s.cache[storageIdx]
	}()
	if ok {
		return r, nil
	}

	listID, ruleIdx := storageIdxToRuleListIdx(storageIdx)

	list, ok := s.listsMap[listID]
	if !ok {
		return nil, fmt.Errorf("list %d does not exist", listID)
	}

	r, err = list.RetrieveRule(ruleIdx)
	if r != nil {
		func() {
			s.cacheMu.Lock()
			defer s.cacheMu.Unlock()

			s.cache[storageIdx] = r
		}()
	}

	return r, err
}

// MustRetrieveRule is a helper method that retrieves a block rule from the
// storage.  It returns the rule or nil in any other case (not found or
// error).
func (s *RuleStorage) MustRetrieveRule(storageIdx int64) (r *rules.BlockRule) {
	r, err := s.RetrieveRule(storageIdx)
	if err != nil {
		slog.Error("cannot retrieve block rule", "idx", storageIdx, slogutil.KeyError, err)

		return nil
	}

	return r
}

// Close closes the storage instance.
func (s *RuleStorage) Close() (err error) {
	if len(s.lists) == 0 {
		return nil
	}

	var errs []error
	for _, l := range s.lists {
		err = l.Close()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Annotate(errors.Join(errs...), "closing rule lists: %w")
}

// GetCacheSize returns the size of the in-memory rules cache.
func (s *RuleStorage) GetCacheSize() (sz int) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	return len(s.cache)
}
