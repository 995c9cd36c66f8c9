package store

const schema = `
CREATE TABLE IF NOT EXISTS spends (
  coin_id BLOB NOT NULL PRIMARY KEY,
  parent_coin_info BLOB NOT NULL,
  puzzle_hash BLOB NOT NULL,
  amount INTEGER NOT NULL,
  puzzle_reveal BLOB NOT NULL,
  solution BLOB NOT NULL,
  launcher_id BLOB NOT NULL DEFAULT x''
);

CREATE INDEX IF NOT EXISTS spends_launcher ON spends (launcher_id);

CREATE TABLE IF NOT EXISTS heads (
  launcher_id BLOB NOT NULL PRIMARY KEY,
  parent_coin_info BLOB NOT NULL,
  puzzle_hash BLOB NOT NULL,
  amount INTEGER NOT NULL,
  owner_puzzle_hash BLOB NOT NULL,
  root_hash BLOB NOT NULL,
  manifest BLOB NOT NULL
);
`
