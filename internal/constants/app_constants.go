package constants

import "time"

const (
	// Redis key layout
	RawFileMD5SetKey    = "candidates:file_md5s" // set of uploaded file MD5s
	JobVectorKeyPrefix  = "job_vectors:"         // job_vectors:<job_id> -> requirement vectors
	RankingKeyPrefix    = "job_ranking:"         // job_ranking:<job_id> -> cached ranking JSON
	JobVectorCacheTTL   = 24 * time.Hour

	// Default size bound for a single résumé chunk, in characters.
	DefaultChunkSize = 1000
)
