package phwater

// Vendor-style cycles with reagent bag coefficients ea434=17709, eb434=2287,
// ea578=107, eb578=38222. Expected values were produced by the DPS reference
// algorithm.
var vendorCoefficients = Coefficients{EA434: 17709, EB434: 2287, EA578: 107, EB578: 38222}

type goldenRecord struct {
	name        string
	ref         []float64
	light       []float64
	thermistor  float64
	temperature float64
	blank434    float64
	blank578    float64
	window      int
	r2          float64
	ph          float64
	ph33        float64
}

var goldenRecords = []goldenRecord{
	{
		name:        "warm",
		ref:         []float64{2017, 1828, 2122, 1938, 2097, 1897, 2058, 1874, 2063, 1867, 2147, 1958, 2083, 1888, 2098, 1911},
		light:       []float64{2024, 1235, 2224, 1107, 2007, 1065, 2199, 884, 2110, 1090, 2100, 810, 2114, 1115, 2168, 863, 2058, 1129, 2126, 899, 2081, 1194, 2107, 954, 2005, 1202, 2106, 1020, 2138, 1336, 2102, 1085, 2097, 1362, 2155, 1180, 2108, 1417, 2107, 1216, 2135, 1481, 2156, 1306, 2112, 1506, 2226, 1407, 2141, 1566, 2159, 1418, 2088, 1562, 2159, 1468, 2056, 1569, 2217, 1555, 2074, 1612, 2105, 1517, 2106, 1663, 2242, 1656, 2025, 1622, 2147, 1622, 2075, 1684, 2130, 1641, 2085, 1712, 2228, 1747, 2108, 1748, 2229, 1776, 2048, 1714, 2177, 1759, 2072, 1749, 2250, 1841},
		thermistor:  1640,
		temperature: 21.212435029600329,
		blank434:    0.905574971564533,
		blank578:    0.911679960509146,
		window:      1,
		r2:          0.296626796787936,
		ph:          7.950049705855543,
		ph33:        7.954249705855524,
	},
	{
		name:        "cold",
		ref:         []float64{2110, 1907, 2158, 1965, 2010, 1822, 2096, 1910, 2094, 1897, 2153, 1967, 2039, 1846, 2082, 1897},
		light:       []float64{2009, 1144, 2248, 1315, 2040, 985, 2210, 1105, 2100, 982, 2230, 1082, 2095, 1004, 2239, 1112, 2113, 1061, 2228, 1156, 2068, 1094, 2109, 1151, 2007, 1119, 2193, 1257, 2119, 1241, 2181, 1311, 2097, 1284, 2208, 1385, 2134, 1361, 2142, 1397, 2143, 1418, 2145, 1449, 2060, 1409, 2159, 1505, 2006, 1413, 2145, 1538, 2083, 1506, 2144, 1576, 2034, 1506, 2230, 1677, 2130, 1611, 2192, 1682, 2131, 1642, 2243, 1753, 2046, 1604, 2214, 1758, 2106, 1676, 2234, 1800, 2093, 1688, 2190, 1788, 2092, 1708, 2214, 1828, 2041, 1685, 2202, 1837, 2118, 1765, 2235, 1882},
		thermistor:  1850,
		temperature: 16.183971472740609,
		blank434:    0.905381642400886,
		blank578:    0.911644232413568,
		window:      3,
		r2:          0.832048303656673,
		ph:          7.800790808121398,
		ph33:        7.804990808121421,
	},
	{
		name:        "reference temperature",
		ref:         []float64{2030, 1838, 2125, 1936, 2047, 1854, 2167, 1976, 2080, 1879, 2124, 1938, 2001, 1814, 2166, 1975},
		light:       []float64{2066, 1324, 2241, 996, 2059, 1167, 2149, 740, 2120, 1173, 2238, 734, 2140, 1206, 2221, 756, 2101, 1226, 2138, 782, 2059, 1249, 2138, 848, 2133, 1345, 2199, 946, 2003, 1310, 2116, 982, 2040, 1380, 2110, 1050, 2077, 1448, 2107, 1116, 2068, 1482, 2221, 1245, 2099, 1542, 2209, 1303, 2101, 1577, 2247, 1388, 2113, 1618, 2134, 1373, 2093, 1631, 2124, 1418, 2009, 1590, 2134, 1472, 2126, 1707, 2155, 1531, 2066, 1680, 2211, 1612, 2077, 1708, 2207, 1647, 2129, 1769, 2198, 1676, 2146, 1799, 2189, 1700, 2136, 1805, 2249, 1777, 2104, 1791, 2249, 1804},
		thermistor:  1500,
		temperature: 24.762424823139497,
		blank434:    0.905261627987247,
		blank578:    0.911791734296990,
		window:      8,
		r2:          0.556685887491467,
		ph:          8.052356610271717,
		ph33:        8.056556610271677,
	},
}

func (g goldenRecord) record() Record {
	return Record{Reference: g.ref, Light: g.light, ThermistorRaw: g.thermistor, Coefficients: vendorCoefficients}
}
