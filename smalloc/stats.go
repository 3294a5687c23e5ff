package smalloc

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/segalloc/memutils"
	"github.com/vkngwrapper/segalloc/memutils/metadata"
)

// CalculateStatistics fills stats with a snapshot of the arena's segments and allocations
func (a *Allocator) CalculateStatistics(stats *memutils.DetailedStatistics) error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	a.logger.Debug("Allocator::CalculateStatistics")

	err := a.checkInitialized()
	if err != nil {
		return err
	}

	stats.Clear()
	a.metadata.AddDetailedStatistics(stats)
	return nil
}

// BuildStatsString renders the arena's statistics as a JSON document.
//
// detailedMap - When true, the document also lists every segment in the arena in address order
func (a *Allocator) BuildStatsString(detailedMap bool) (string, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	a.logger.Debug("Allocator::BuildStatsString")

	err := a.checkInitialized()
	if err != nil {
		return "", err
	}

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.metadata.AddDetailedStatistics(&stats)

	writer := jwriter.NewWriter()
	rootObj := writer.Object()

	totalObj := rootObj.Name("Total").Object()
	printStatistics(&totalObj, &stats)
	totalObj.End()

	if detailedMap {
		arenaObj := rootObj.Name("Arena").Object()
		arenaObj.Name("PageSize").Int(a.reserver.PageSize())
		a.metadata.BlockJsonData(arenaObj)
		a.printDetailedMapSegments(&arenaObj)
		arenaObj.End()
	}

	rootObj.End()

	err = writer.Error()
	if err != nil {
		return "", err
	}

	return string(writer.Bytes()), nil
}

func printStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("SegmentCount").Int(stats.SegmentCount)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("FreeSegmentCount").Int(stats.FreeSegmentCount)
	json.Name("RegionBytes").Int(stats.RegionBytes)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)
	json.Name("RequestedBytes").Int(stats.RequestedBytes)
	json.Name("FreeBytes").Int(stats.FreeBytes)

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}

	if stats.FreeSegmentCount > 0 {
		json.Name("FreeSegmentSizeMin").Int(stats.FreeSegmentSizeMin)
		json.Name("FreeSegmentSizeMax").Int(stats.FreeSegmentSizeMax)
	}
}

func (a *Allocator) printDetailedMapSegments(json *jwriter.ObjectState) {
	segmentsArray := json.Name("Segments").Array()
	defer segmentsArray.End()

	_ = a.metadata.VisitAllRegions(func(offset int, size int, free bool) error {
		segmentObj := segmentsArray.Object()
		defer segmentObj.End()

		segmentObj.Name("Offset").Int(offset)
		segmentObj.Name("Size").Int(size)

		if free {
			segmentObj.Name("Type").String(metadata.SegmentFree.String())
			return nil
		}

		segmentObj.Name("Type").String(metadata.SegmentInUse.String())
		payloadSize, err := a.metadata.AllocationPayloadSize(offset)
		if err == nil {
			segmentObj.Name("PayloadSize").Int(payloadSize)
		}
		return nil
	})
}
