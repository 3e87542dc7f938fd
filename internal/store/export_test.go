package store

const DeleteBatch = deleteBatch
