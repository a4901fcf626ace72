package spatial

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// EncodeGeohash encodes a point into a geohash of the given precision (1-12).
// Nearby fixes share a prefix, which makes it usable as a cache key for
// region lookups.
func EncodeGeohash(p Point, precision int) string {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0
	out := make([]byte, precision)
	even := true

	for i := 0; i < precision; i++ {
		idx := 0
		for b := 0; b < 5; b++ {
			idx <<= 1
			if even {
				mid := (minLon + maxLon) / 2
				if p.Lon > mid {
					idx |= 1
					minLon = mid
				} else {
					maxLon = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if p.Lat > mid {
					idx |= 1
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			even = !even
		}
		out[i] = geohashAlphabet[idx]
	}

	return string(out)
}
