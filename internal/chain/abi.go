package chain

// AuctionABI 拍卖合约ABI（只包含后端用到的函数）
const AuctionABI = `[
	{
		"inputs": [{"name": "auctionId", "type": "uint256"}],
		"name": "getAuctionById",
		"outputs": [
			{
				"components": [
					{"name": "auctionId", "type": "uint256"},
					{"name": "nftId", "type": "uint256"},
					{"name": "openingTimestamp", "type": "uint256"},
					{"name": "closingTimestamp", "type": "uint256"},
					{"name": "startingPrice", "type": "uint256"},
					{"name": "minimumBidIncrement", "type": "uint256"},
					{"name": "isOpen", "type": "bool"}
				],
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "s_currentAuctionId",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "s_currentHighestBid",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "s_currentWinner",
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "bidderAddress", "type": "address"}],
		"name": "getWithdrawableAmountByBidderAddress",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "getUnsoldNFTPrice",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "getIsTokenListed",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getListOfBids",
		"outputs": [{"name": "", "type": "address[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "placeBid",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"name": "bidAmount", "type": "uint256"}],
		"name": "placeBidNonPayable",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "withdrawAmount", "type": "uint256"}],
		"name": "withdrawBid",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "buyUnsoldNFT",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "buyUnsoldNFTNonPayable",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "startAuction",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "closeAuction",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// NFTABI NFT合约ABI
const NFTABI = `[
	{
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "getOwnedNFTsArray",
		"outputs": [{"name": "", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "tokenURI",
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	}
]`
