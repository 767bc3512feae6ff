// ucsv reads, writes and reshapes delimited text files whose dialect is
// chosen by file extension.
//
// Usage:
//
//	# Re-encode a semicolon csv export as a tab-separated file
//	ucsv convert orders.csv orders.tsv
//
//	# Merge files, keeping the fields they all share
//	ucsv merge all.csv jan.csv feb.txt
//
//	# Drop repeated rows, flatten multi-line values
//	ucsv dedupe in.csv out.csv --key id
//	ucsv slim in.csv out.csv --fields id,note
//
//	# Move data between files and PostgreSQL
//	ucsv load orders.csv public.orders --type amount=numeric
//	ucsv dump report.tsv --query "SELECT * FROM orders"
//
//	# Serve conversions over HTTP
//	ucsv serve
//
// Settings come from the environment and an optional .env file; see
// internal/config.
package main

func main() {
	Execute()
}
