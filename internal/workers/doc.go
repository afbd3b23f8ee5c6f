/*
Package workers sizes the conversion worker pool.

Containers often limit CPUs below what runtime.NumCPU reports. Go 1.19+ sets
GOMAXPROCS from the cgroup limit, so the helpers here size from GOMAXPROCS:

	workers.ForCPU(8)    // 1 per CPU, at most 8
	workers.ForEncode(8) // 1 per 2 CPUs, at most 8

Resolve turns the CONVERT_WORKERS setting into a pool size:

	""/"0"   unbounded (one goroutine per job, no semaphore)
	"auto"   ForEncode(limit)
	"N"      exactly N concurrent conversions
*/
package workers
